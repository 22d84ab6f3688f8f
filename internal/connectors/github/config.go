package github

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// Property keys.
const (
	PropRepo    = "github.repo"
	PropRef     = "github.ref"
	PropPattern = "github.pattern"
	PropToken   = "github.token"
	PropAPIURL  = "github.api.url"
)

// DefaultPattern selects XML metadata files anywhere in the repository.
const DefaultPattern = "**/*.xml"

// Config holds the parsed configuration of a GITHUB broker.
type Config struct {
	Owner string
	Repo  string

	// Ref is the branch, tag or SHA to harvest. Empty means the default branch.
	Ref string

	// Patterns are doublestar globs matched against the file path.
	Patterns []string

	Token string

	// APIURL overrides the API base URL (GitHub Enterprise).
	APIURL string
}

// ParseConfig parses a broker definition into a Config.
func ParseConfig(def domain.EntityDefinition) (*Config, error) {
	repo, err := def.Require(PropRepo)
	if err != nil {
		return nil, err
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, domain.InvalidDefinitionf("%s: %s must be owner/name, got %q", Type, PropRepo, repo)
	}

	cfg := &Config{
		Owner:    owner,
		Repo:     name,
		Ref:      def.Get(PropRef),
		Patterns: def.List(PropPattern, DefaultPattern),
		Token:    def.Get(PropToken),
		APIURL:   def.Get(PropAPIURL),
	}

	for _, p := range cfg.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, domain.InvalidDefinitionf("%s: invalid pattern %q", Type, p)
		}
	}

	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, domain.InvalidDefinitionf("%s: %s is not an absolute URL: %q", Type, PropAPIURL, cfg.APIURL)
		}
	}
	return cfg, nil
}

// FullName returns "owner/name".
func (c *Config) FullName() string {
	return c.Owner + "/" + c.Repo
}

// Matches reports whether a repository path matches any pattern.
func (c *Config) Matches(path string) bool {
	for _, p := range c.Patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
