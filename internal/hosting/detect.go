package hosting

import (
	"regexp"
	"strings"
)

var (
	githubPatterns = []*regexp.Regexp{
		regexp.MustCompile(`github\.com[:/]`),
		regexp.MustCompile(`github\.[a-z0-9-]+\.[a-z]+[:/]`), // GitHub Enterprise (github.company.com)
	}
	gitlabPatterns = []*regexp.Regexp{
		regexp.MustCompile(`gitlab\.com[:/]`),
		regexp.MustCompile(`gitlab\.[a-z0-9-]+\.[a-z]+[:/]`), // Self-hosted GitLab (gitlab.company.com)
	}
)

// DetectProvider determines the hosting provider from a git remote URL.
func DetectProvider(remoteURL string) ProviderType {
	url := strings.ToLower(strings.TrimSpace(remoteURL))
	switch {
	case url == "":
		return ProviderUnknown
	case matchesAny(githubPatterns, url):
		return ProviderGitHub
	case matchesAny(gitlabPatterns, url):
		return ProviderGitLab
	}
	return ProviderUnknown
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ParseOwnerRepo extracts owner and repo from a git remote URL or a web URL.
//
// Handles:
//   - git@github.com:owner/repo.git → (owner, repo)
//   - https://github.com/owner/repo.git → (owner, repo)
//   - ssh://git@github.com:22/owner/repo.git → (owner, repo)
//   - git@gitlab.com:group/subgroup/repo.git → (group/subgroup, repo)
func ParseOwnerRepo(remoteURL string) (owner, repo string) {
	raw := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(remoteURL), "/"), ".git")

	switch {
	case strings.HasPrefix(raw, "ssh://"), strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		raw = raw[strings.Index(raw, "://")+3:]
		if idx := strings.Index(raw, "/"); idx != -1 {
			raw = strings.TrimLeft(raw[idx+1:], "/")
		}
	default:
		if idx := strings.Index(raw, ":"); idx != -1 {
			raw = raw[idx+1:]
		}
	}

	// GitLab owners can be "group/subgroup", so the repo is the last segment.
	parts := strings.Split(raw, "/")
	if len(parts) < 2 {
		return raw, ""
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

// ValidRepoName reports whether name has the "owner/repo" form with
// letters, digits, '-', '_' and '.' only.
func ValidRepoName(name string) bool {
	return repoNamePattern.MatchString(name)
}

var repoNamePattern = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
