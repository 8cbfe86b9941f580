// Package resolve picks the single record to keep in each duplicate
// cluster. Hand-curated content must never be silently deleted in favor of
// bulk-generated variants, even when the bulk variant was discovered
// first, so tier priority dominates every tie-break.
package resolve

import (
	"sort"

	"github.com/steveyegge/winnow/internal/types"
)

// Resolver applies the tier-priority ordering to duplicate clusters
type Resolver struct {
	rank map[types.ProvenanceTier]int
}

// New builds a Resolver from a tier ordering, highest priority first
func New(order []types.ProvenanceTier) *Resolver {
	rank := make(map[types.ProvenanceTier]int, len(order))
	for i, tier := range order {
		rank[tier] = i
	}
	return &Resolver{rank: rank}
}

// priority returns a sortable rank for a tier. Tiers missing from the
// configured ordering rank below every listed tier, so they can never win
// a conflict against classified content.
func (r *Resolver) priority(t types.ProvenanceTier) int {
	if p, ok := r.rank[t]; ok {
		return p
	}
	return len(r.rank)
}

// Resolve picks exactly one keep record for a cluster. Members sort by
// (tier priority, source file, discovery order); the first survives.
// Deterministic across runs on identical input.
func (r *Resolver) Resolve(cluster *types.DuplicateCluster) *types.Resolution {
	members := append([]*types.Record(nil), cluster.Records...)
	sort.SliceStable(members, func(i, j int) bool {
		pi, pj := r.priority(members[i].Tier), r.priority(members[j].Tier)
		if pi != pj {
			return pi < pj
		}
		if members[i].SourceFile != members[j].SourceFile {
			return members[i].SourceFile < members[j].SourceFile
		}
		return members[i].DiscoveryOrder < members[j].DiscoveryOrder
	})
	return &types.Resolution{
		Keep:    members[0],
		Remove:  members[1:],
		Cluster: cluster,
	}
}

// ResolveAll resolves every cluster independently, preserving cluster
// order. Textually identical records in different clusters (different
// group keys) are intentionally resolved apart.
func (r *Resolver) ResolveAll(clusters []*types.DuplicateCluster) []*types.Resolution {
	resolutions := make([]*types.Resolution, len(clusters))
	for i, c := range clusters {
		resolutions[i] = r.Resolve(c)
	}
	return resolutions
}
