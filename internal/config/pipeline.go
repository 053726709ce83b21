package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline holds the tunable parameters of a run. The numeric defaults
// are starting points, not calibrated constants; pipeline.yml exists so
// they can be tuned per corpus.
type Pipeline struct {
	Matcher  MatcherConfig  `yaml:"matcher"`
	Resolver ResolverConfig `yaml:"resolver"`
	Verifier VerifierConfig `yaml:"verifier"`
	Grobid   GrobidConfig   `yaml:"grobid"`
}

// MatcherConfig tunes marker-to-entry matching.
type MatcherConfig struct {
	// FuzzyThreshold is the minimum similarity for a fuzzy marker match
	// when no exact key match exists.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// ResolverConfig tunes external record resolution.
type ResolverConfig struct {
	// MinScore is the minimum combined similarity for a provider
	// candidate to survive.
	MinScore float64 `yaml:"min_score"`

	// TitleWeight and AuthorWeight shape the combined score. Year is a
	// gate, not a weight.
	TitleWeight  float64 `yaml:"title_weight"`
	AuthorWeight float64 `yaml:"author_weight"`

	// TrustOrder breaks score ties: earlier providers win.
	TrustOrder []string `yaml:"trust_order"`

	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	// Concurrency bounds parallel entry resolution within one document.
	Concurrency int `yaml:"concurrency"`
}

// VerifierConfig tunes the existence/accessibility probes.
type VerifierConfig struct {
	// Attempts bounds retries for an inconclusive probe.
	Attempts int `yaml:"attempts"`

	// Backoff is the base delay between attempts, doubled each retry.
	Backoff time.Duration `yaml:"backoff"`

	// ProbeTimeout bounds each individual probe request.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// Concurrency bounds parallel record verification.
	Concurrency int `yaml:"concurrency"`
}

// GrobidConfig points at the structured-text conversion service.
type GrobidConfig struct {
	URL string `yaml:"url"` // e.g. http://127.0.0.1:8070
}

// Default returns the default pipeline configuration.
func Default() *Pipeline {
	return &Pipeline{
		Matcher: MatcherConfig{
			FuzzyThreshold: 0.75,
		},
		Resolver: ResolverConfig{
			MinScore:        0.60,
			TitleWeight:     0.7,
			AuthorWeight:    0.3,
			TrustOrder:      []string{"crossref", "openalex"},
			ProviderTimeout: 10 * time.Second,
			Concurrency:     4,
		},
		Verifier: VerifierConfig{
			Attempts:     3,
			Backoff:      500 * time.Millisecond,
			ProbeTimeout: 10 * time.Second,
			Concurrency:  4,
		},
	}
}

// LoadPipeline reads and validates pipeline.yml from the given path.
// Missing fields fall back to defaults; a missing file is the defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would make a run meaningless.
func (p *Pipeline) Validate() error {
	if p.Matcher.FuzzyThreshold < 0 || p.Matcher.FuzzyThreshold > 1 {
		return fmt.Errorf("matcher.fuzzy_threshold must be in [0,1], got %g", p.Matcher.FuzzyThreshold)
	}
	if p.Resolver.MinScore < 0 || p.Resolver.MinScore > 1 {
		return fmt.Errorf("resolver.min_score must be in [0,1], got %g", p.Resolver.MinScore)
	}
	if p.Resolver.TitleWeight < 0 || p.Resolver.AuthorWeight < 0 {
		return fmt.Errorf("resolver weights must be non-negative")
	}
	if p.Resolver.TitleWeight+p.Resolver.AuthorWeight == 0 {
		return fmt.Errorf("resolver weights must not both be zero")
	}
	if len(p.Resolver.TrustOrder) == 0 {
		return fmt.Errorf("resolver.trust_order must name at least one provider")
	}
	if p.Verifier.Attempts < 1 {
		return fmt.Errorf("verifier.attempts must be at least 1, got %d", p.Verifier.Attempts)
	}
	if p.Resolver.Concurrency < 1 {
		p.Resolver.Concurrency = 1
	}
	if p.Verifier.Concurrency < 1 {
		p.Verifier.Concurrency = 1
	}
	return nil
}

// Save writes the configuration as YAML.
func (p *Pipeline) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pipeline config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing pipeline config: %w", err)
	}
	return nil
}
