package types

import (
	"fmt"
	"strings"
)

// Record is the unit of deduplication: one piece of candidate text plus
// enough metadata to locate and possibly remove it from its owning document.
type Record struct {
	Text           string         `json:"text"`
	Normalized     string         `json:"normalized,omitempty"`
	Fingerprint    string         `json:"fingerprint,omitempty"`
	Locator        Locator        `json:"locator"`
	GroupKey       string         `json:"group_key"`
	Tier           ProvenanceTier `json:"provenance_tier"`
	SourceFile     string         `json:"source_file"`
	DiscoveryOrder int            `json:"discovery_order"`
}

// Validate checks that the record has usable field values
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("record text is empty")
	}
	if len(r.Locator.Segs) == 0 {
		return fmt.Errorf("record has no locator")
	}
	if !r.Tier.IsValid() {
		return fmt.Errorf("invalid provenance tier: %s", r.Tier)
	}
	if r.SourceFile == "" {
		return fmt.Errorf("record has no source file")
	}
	if r.DiscoveryOrder < 0 {
		return fmt.Errorf("discovery order cannot be negative (got %d)", r.DiscoveryOrder)
	}
	return nil
}

// ProvenanceTier ranks how authoritative a record's originating file is.
// Higher tiers always win duplicate conflicts.
type ProvenanceTier string

const (
	// TierPrimary is hand-authored or first-generation content
	TierPrimary ProvenanceTier = "primary"
	// TierDerived is content produced by a refinement pass over primary
	TierDerived ProvenanceTier = "derived"
	// TierGenerated is bulk-multiplied or templated content
	TierGenerated ProvenanceTier = "generated"
)

// DefaultTierOrder is the built-in priority ordering, highest first.
var DefaultTierOrder = []ProvenanceTier{TierPrimary, TierDerived, TierGenerated}

func (t ProvenanceTier) IsValid() bool {
	switch t {
	case TierPrimary, TierDerived, TierGenerated:
		return true
	}
	return false
}

// ParseTier converts a tier name (case-insensitive) to a ProvenanceTier
func ParseTier(s string) (ProvenanceTier, error) {
	t := ProvenanceTier(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown provenance tier: %q (valid: primary, derived, generated)", s)
	}
	return t, nil
}

// MatchKind distinguishes how a duplicate cluster was formed
type MatchKind string

const (
	// MatchExact means every member shares one fingerprint
	MatchExact MatchKind = "exact"
	// MatchNear means at least one membership edge came from fuzzy similarity
	MatchNear MatchKind = "near"
)

func (k MatchKind) IsValid() bool {
	switch k {
	case MatchExact, MatchNear:
		return true
	}
	return false
}

// DuplicateCluster is a maximal set of records considered duplicates of one
// another. Singleton clusters are never materialized; every cluster has at
// least two members.
type DuplicateCluster struct {
	Records []*Record `json:"records"`
	Kind    MatchKind `json:"kind"`
}

// Validate checks cluster structural invariants
func (c *DuplicateCluster) Validate() error {
	if len(c.Records) < 2 {
		return fmt.Errorf("cluster must have at least 2 records (got %d)", len(c.Records))
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("invalid match kind: %s", c.Kind)
	}
	for i, r := range c.Records {
		if r == nil {
			return fmt.Errorf("cluster record %d is nil", i)
		}
	}
	return nil
}

// Resolution records the keep/remove outcome for one cluster: exactly one
// record is kept, all others are removed.
type Resolution struct {
	Keep    *Record           `json:"keep"`
	Remove  []*Record         `json:"remove"`
	Cluster *DuplicateCluster `json:"-"`
}

// Validate cross-checks the resolution against its cluster
func (res *Resolution) Validate() error {
	if res.Keep == nil {
		return fmt.Errorf("resolution has no keep record")
	}
	if len(res.Remove) == 0 {
		return fmt.Errorf("resolution has no remove records")
	}
	for i, r := range res.Remove {
		if r == nil {
			return fmt.Errorf("remove record %d is nil", i)
		}
		if r == res.Keep {
			return fmt.Errorf("kept record also appears in remove set (%s)", r.SourceFile)
		}
	}
	if res.Cluster != nil {
		if want := len(res.Cluster.Records) - 1; len(res.Remove) != want {
			return fmt.Errorf("remove count %d does not match cluster size %d",
				len(res.Remove), len(res.Cluster.Records))
		}
	}
	return nil
}
