package hosting

import (
	"fmt"
	"net/http"
	"sort"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

// Config holds hosting provider configuration.
type Config struct {
	// Provider type: "github", "gitlab", or "auto". When "auto" or empty,
	// the provider is detected from RemoteURL, defaulting to GitHub.
	Provider string

	// BaseURL for self-hosted instances (e.g., "https://gitlab.company.com").
	// Leave empty for github.com / gitlab.com.
	BaseURL string

	// Token is the API token. When empty the provider falls back to its
	// conventional environment variable (GITHUB_TOKEN, GITLAB_TOKEN).
	Token string

	// Repo is "owner/repo" on GitHub or the project path on GitLab. When
	// empty it is parsed from RemoteURL.
	Repo string

	// RemoteURL is the workspace's origin URL, if a workspace is known.
	RemoteURL string

	// HTTPClient overrides the transport used by the API client.
	HTTPClient *http.Client
}

// NewProviderFunc is a constructor function for creating a hosting provider.
// The GitHub and GitLab constructors register themselves at init time so
// this package does not import them.
type NewProviderFunc func(cfg Config) (Provider, error)

var providerConstructors = map[ProviderType]NewProviderFunc{}

// RegisterProvider registers a provider constructor.
// Called from init() in provider packages (github/, gitlab/).
func RegisterProvider(providerType ProviderType, constructor NewProviderFunc) {
	providerConstructors[providerType] = constructor
}

// New creates the configured hosting provider.
func New(cfg Config) (Provider, error) {
	providerType, err := ResolveProviderType(cfg)
	if err != nil {
		return nil, err
	}

	constructor, ok := providerConstructors[providerType]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q (registered: %v)", providerType, registeredProviders())
	}

	if cfg.Repo == "" && cfg.RemoteURL != "" {
		owner, repo := ParseOwnerRepo(cfg.RemoteURL)
		if owner != "" && repo != "" {
			cfg.Repo = owner + "/" + repo
		}
	}
	return constructor(cfg)
}

// ResolveProviderType determines which provider to use.
func ResolveProviderType(cfg Config) (ProviderType, error) {
	switch cfg.Provider {
	case string(ProviderGitHub), string(ProviderGitLab):
		return ProviderType(cfg.Provider), nil
	case "", "auto":
		if detected := DetectProvider(cfg.RemoteURL); detected != ProviderUnknown {
			return detected, nil
		}
		return ProviderGitHub, nil
	default:
		return "", t2perrors.ErrConfigInvalid("forge.provider", fmt.Sprintf("unknown provider %q (supported: github, gitlab)", cfg.Provider))
	}
}

func registeredProviders() []ProviderType {
	var providers []ProviderType
	for pt := range providerConstructors {
		providers = append(providers, pt)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
