package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/winnow/internal/types"
)

// GroupScope selects the near-duplicate candidate scoping strategy
type GroupScope string

const (
	// ScopeByGroupKey compares only records sharing a group key. Exact
	// fingerprint buckets are also keyed by group, so identical text in
	// unrelated groups is preserved.
	ScopeByGroupKey GroupScope = "by_group_key"
	// ScopeGlobal compares all record pairs. Quadratic; small corpora only.
	ScopeGlobal GroupScope = "global"
	// ScopeCapped compares all pairs among the first near_candidate_cap
	// records by discovery order. Records past the cap are exempt from
	// near comparison; the report notes when the cap engages.
	ScopeCapped GroupScope = "capped"
)

func (s GroupScope) IsValid() bool {
	switch s {
	case ScopeByGroupKey, ScopeGlobal, ScopeCapped:
		return true
	}
	return false
}

// TierPattern maps a file-name substring to a provenance tier. Patterns
// are checked in order; the first match wins.
type TierPattern struct {
	Contains string               `yaml:"contains"`
	Tier     types.ProvenanceTier `yaml:"tier"`
}

// Config holds the full engine configuration
type Config struct {
	// SimilarityThreshold is the near-duplicate cutoff (0.0-1.0) for the
	// sequence-ratio comparison of normalized texts.
	// Higher values = more conservative (fewer merges)
	// Default: 0.85
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// GroupScope selects how the quadratic near-duplicate pass is bounded.
	// Default: by_group_key
	GroupScope GroupScope `yaml:"group_scope"`

	// TierResolver is the tier priority ordering, highest first. The
	// resolver keeps the cluster member with the highest-priority tier.
	// Default: [primary, derived, generated]
	TierResolver []types.ProvenanceTier `yaml:"tier_resolver"`

	// MinRecordLength ignores records shorter than this after trimming.
	// Default: 1 (empty and whitespace-only values are never records)
	MinRecordLength int `yaml:"min_record_length"`

	// NearCandidateCap bounds the near pass under group_scope=capped.
	// Default: 1000
	NearCandidateCap int `yaml:"near_candidate_cap"`

	// TextFields are object field names whose string value is a record
	TextFields []string `yaml:"text_fields"`

	// ListFields are field names whose array-of-strings elements are records
	ListFields []string `yaml:"list_fields"`

	// GroupFields are field names consulted, nearest enclosing object
	// first, for a record's group key
	GroupFields []string `yaml:"group_fields"`

	// TierPatterns classify files into provenance tiers by name; first
	// match wins, unmatched files are generated
	TierPatterns []TierPattern `yaml:"tier_patterns"`

	// Adjudicate enables the Claude pass over borderline near-duplicate
	// pairs. Requires ANTHROPIC_API_KEY.
	// Default: false
	Adjudicate bool `yaml:"adjudicate"`

	// AdjudicateMargin defines the borderline band: pairs scoring in
	// [threshold-margin, threshold) are eligible for adjudication.
	// Default: 0.03
	AdjudicateMargin float64 `yaml:"adjudicate_margin"`

	// AdjudicateMaxPairs caps API calls per run.
	// Default: 50
	AdjudicateMaxPairs int `yaml:"adjudicate_max_pairs"`

	// AdjudicateModel is the Claude model for borderline verdicts.
	// Default: claude-sonnet-4-5-20250929
	AdjudicateModel string `yaml:"adjudicate_model"`
}

// DefaultConfig returns the default engine configuration
//
// These defaults are chosen to:
// - Merge only confidently redundant content (0.85 threshold)
// - Preserve intentional cross-group duplication (by_group_key scope)
// - Never delete hand-authored content in favor of generated variants
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold: 0.85,
		GroupScope:          ScopeByGroupKey,
		TierResolver:        append([]types.ProvenanceTier(nil), types.DefaultTierOrder...),
		MinRecordLength:     1,
		NearCandidateCap:    1000,
		TextFields:          []string{"insight", "text", "content", "quote"},
		ListFields:          []string{"insights", "quotes", "records", "entries"},
		GroupFields:         []string{"category", "topic", "theme", "group"},
		TierPatterns: []TierPattern{
			{Contains: "original", Tier: types.TierPrimary},
			{Contains: "curated", Tier: types.TierPrimary},
			{Contains: "source", Tier: types.TierPrimary},
			{Contains: "advanced", Tier: types.TierDerived},
			{Contains: "refined", Tier: types.TierDerived},
			{Contains: "derived", Tier: types.TierDerived},
			{Contains: "generated", Tier: types.TierGenerated},
			{Contains: "bulk", Tier: types.TierGenerated},
			{Contains: "auto", Tier: types.TierGenerated},
		},
		Adjudicate:         false,
		AdjudicateMargin:   0.03,
		AdjudicateMaxPairs: 50,
		AdjudicateModel:    "claude-sonnet-4-5-20250929",
	}
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.SimilarityThreshold)
	}
	if !c.GroupScope.IsValid() {
		return fmt.Errorf("group_scope must be one of by_group_key, global, capped (got %q)",
			c.GroupScope)
	}
	if len(c.TierResolver) == 0 {
		return fmt.Errorf("tier_resolver must list at least one tier")
	}
	seen := make(map[types.ProvenanceTier]bool, len(c.TierResolver))
	for _, tier := range c.TierResolver {
		if !tier.IsValid() {
			return fmt.Errorf("tier_resolver contains unknown tier %q", tier)
		}
		if seen[tier] {
			return fmt.Errorf("tier_resolver lists %q twice", tier)
		}
		seen[tier] = true
	}
	if c.MinRecordLength < 1 {
		return fmt.Errorf("min_record_length must be at least 1 (got %d)", c.MinRecordLength)
	}
	if c.NearCandidateCap < 1 {
		return fmt.Errorf("near_candidate_cap must be positive (got %d)", c.NearCandidateCap)
	}
	if len(c.TextFields) == 0 && len(c.ListFields) == 0 {
		return fmt.Errorf("at least one of text_fields or list_fields must be set")
	}
	for _, p := range c.TierPatterns {
		if p.Contains == "" {
			return fmt.Errorf("tier_patterns entry has empty contains")
		}
		if !p.Tier.IsValid() {
			return fmt.Errorf("tier_patterns entry %q maps to unknown tier %q", p.Contains, p.Tier)
		}
	}
	if c.AdjudicateMargin < 0.0 || c.AdjudicateMargin > c.SimilarityThreshold {
		return fmt.Errorf("adjudicate_margin must be between 0.0 and the similarity threshold (got %.2f)",
			c.AdjudicateMargin)
	}
	if c.AdjudicateMaxPairs < 0 {
		return fmt.Errorf("adjudicate_max_pairs cannot be negative (got %d)", c.AdjudicateMaxPairs)
	}
	if c.Adjudicate && c.AdjudicateModel == "" {
		return fmt.Errorf("adjudicate_model is required when adjudication is enabled")
	}
	return nil
}

// String returns a human-readable representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Threshold: %.2f, Scope: %s, Tiers: %v, MinLen: %d, Cap: %d, Adjudicate: %t}",
		c.SimilarityThreshold, c.GroupScope, c.TierResolver, c.MinRecordLength,
		c.NearCandidateCap, c.Adjudicate,
	)
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in that precedence order (environment wins). Flag overrides
// are the caller's concern. Returns an error on unreadable/invalid files,
// malformed environment values, or failed validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays recognized environment variables onto the config
//
// Environment variables:
//   - WINNOW_SIMILARITY_THRESHOLD: near-duplicate cutoff 0.0-1.0 (default: 0.85)
//   - WINNOW_GROUP_SCOPE: by_group_key, global, or capped (default: by_group_key)
//   - WINNOW_MIN_RECORD_LENGTH: minimum trimmed record length (default: 1)
//   - WINNOW_NEAR_CANDIDATE_CAP: candidate cap for capped scope (default: 1000)
//   - WINNOW_ADJUDICATE: enable the Claude borderline pass (default: false)
//
// Returns an error if any variable has an invalid value.
func (c *Config) ApplyEnv() error {
	if err := parseEnvFloat("WINNOW_SIMILARITY_THRESHOLD", &c.SimilarityThreshold); err != nil {
		return err
	}
	if v := os.Getenv("WINNOW_GROUP_SCOPE"); v != "" {
		scope := GroupScope(v)
		if !scope.IsValid() {
			return fmt.Errorf("invalid value for WINNOW_GROUP_SCOPE: %q", v)
		}
		c.GroupScope = scope
	}
	if err := parseEnvInt("WINNOW_MIN_RECORD_LENGTH", &c.MinRecordLength); err != nil {
		return err
	}
	if err := parseEnvInt("WINNOW_NEAR_CANDIDATE_CAP", &c.NearCandidateCap); err != nil {
		return err
	}
	if err := parseEnvBool("WINNOW_ADJUDICATE", &c.Adjudicate); err != nil {
		return err
	}
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
