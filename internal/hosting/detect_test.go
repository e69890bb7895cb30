package hosting

import (
	"testing"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected ProviderType
	}{
		// GitHub
		{"github ssh", "git@github.com:owner/repo.git", ProviderGitHub},
		{"github https", "https://github.com/owner/repo.git", ProviderGitHub},
		{"github enterprise ssh", "git@github.company.com:org/repo.git", ProviderGitHub},
		// GitLab
		{"gitlab ssh", "git@gitlab.com:owner/repo.git", ProviderGitLab},
		{"gitlab self-hosted https", "https://gitlab.acme.com/group/subgroup/repo.git", ProviderGitLab},
		// Unknown
		{"bitbucket", "git@bitbucket.org:owner/repo.git", ProviderUnknown},
		{"empty", "", ProviderUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectProvider(tt.url)
			if got != tt.expected {
				t.Errorf("DetectProvider(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestParseOwnerRepo(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
	}{
		{"github ssh", "git@github.com:owner/repo.git", "owner", "repo"},
		{"github https", "https://github.com/owner/repo.git", "owner", "repo"},
		{"ssh with port", "ssh://git@github.com:22/owner/repo.git", "owner", "repo"},
		{"gitlab subgroup", "git@gitlab.com:group/subgroup/repo.git", "group/subgroup", "repo"},
		{"web url trailing slash", "https://github.com/owner/repo/", "owner", "repo"},
		{"bare full name", "owner/repo", "owner", "repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo := ParseOwnerRepo(tt.url)
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseOwnerRepo(%q) = (%q, %q), want (%q, %q)",
					tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestValidRepoName(t *testing.T) {
	valid := []string{"owner/repo", "my-org/my.repo", "a_b/c-d"}
	invalid := []string{"", "owner", "owner/", "/repo", "a/b/c", "own er/repo", "owner/re$po"}

	for _, name := range valid {
		if !ValidRepoName(name) {
			t.Errorf("ValidRepoName(%q) = false, want true", name)
		}
	}
	for _, name := range invalid {
		if ValidRepoName(name) {
			t.Errorf("ValidRepoName(%q) = true, want false", name)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"added":    StatusAdded,
		"removed":  StatusRemoved,
		"renamed":  StatusRenamed,
		"modified": StatusModified,
		"changed":  StatusModified,
		"copied":   StatusModified,
		"new":      StatusAdded,
		"deleted":  StatusRemoved,
	}
	for in, want := range tests {
		if got := NormalizeStatus(in); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
