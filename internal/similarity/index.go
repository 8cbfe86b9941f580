// Package similarity groups records into duplicate clusters. The exact pass
// buckets records by fingerprint; the near pass computes pairwise sequence
// ratios within a bounded candidate scope and merges transitive matches via
// union-find, so A~B and B~C land in one cluster even when A and C alone
// fall below the threshold.
package similarity

import (
	"log"
	"sort"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/types"
)

type record = types.Record

// Pair is one scored record pair from the near pass
type Pair struct {
	A     *types.Record `json:"-"`
	B     *types.Record `json:"-"`
	Score float64       `json:"score"`
}

// Stats provides metrics about index construction
type Stats struct {
	// ExactClusters is the number of clusters formed purely by fingerprint
	ExactClusters int `json:"exact_clusters"`

	// NearClusters is the number of clusters requiring at least one fuzzy edge
	NearClusters int `json:"near_clusters"`

	// Comparisons is the number of full ratio computations performed
	Comparisons int `json:"comparisons"`

	// PrefilterSkips is the number of pairs the upper-bound check skipped
	PrefilterSkips int `json:"prefilter_skips"`

	// CapEngaged is true when capped scoping excluded records from the near pass
	CapEngaged bool `json:"cap_engaged"`

	// CapExempted is the number of records excluded by the cap
	CapExempted int `json:"cap_exempted"`
}

// BuildResult is the outcome of one index construction
type BuildResult struct {
	// Clusters are the duplicate clusters, ordered by earliest member
	Clusters []*types.DuplicateCluster

	// Borderline are near pairs scoring inside the adjudication margin,
	// just under the threshold. Empty unless a margin is configured.
	Borderline []Pair

	Stats Stats
}

// Index finds exact and near duplicates across a record set
type Index struct {
	threshold float64
	margin    float64
	scope     config.GroupScope
	cap       int
}

// New builds an Index from the engine configuration. The borderline margin
// is honored only when adjudication is enabled; otherwise near pairs under
// the threshold are simply not duplicates.
func New(cfg *config.Config) *Index {
	margin := 0.0
	if cfg.Adjudicate {
		margin = cfg.AdjudicateMargin
	}
	return &Index{
		threshold: cfg.SimilarityThreshold,
		margin:    margin,
		scope:     cfg.GroupScope,
		cap:       cfg.NearCandidateCap,
	}
}

// Build clusters the records. Every record must already carry its
// Normalized form and Fingerprint. The promoted pairs, if any, are treated
// as confirmed near-duplicate edges regardless of their score; the engine
// passes adjudicator-confirmed borderline pairs back through here.
//
// Build is a pure function of its inputs: identical records and promotions
// produce identical clusters in identical order.
func (ix *Index) Build(records []*types.Record, promoted []Pair) *BuildResult {
	res := &BuildResult{}
	if len(records) < 2 {
		return res
	}

	pos := make(map[*types.Record]int, len(records))
	for i, r := range records {
		pos[r] = i
	}
	uf := newUnionFind(len(records))

	// Exact pass: fingerprint buckets. Under by_group_key scoping the
	// bucket key carries the group, so identical text in unrelated groups
	// stays separate (cross-group duplication is intentional).
	buckets := make(map[string][]int)
	order := make([]string, 0)
	for i, r := range records {
		key := r.Fingerprint
		if ix.scope == config.ScopeByGroupKey {
			key = r.GroupKey + "\x00" + r.Fingerprint
		}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}
	exact := make([]bool, len(records))
	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			exact[m] = true
			uf.union(members[0], m)
		}
	}

	// Near pass: only records the exact pass left alone.
	var pool []int
	for i := range records {
		if !exact[i] {
			pool = append(pool, i)
		}
	}
	nearEdge := make([]bool, len(records))
	for _, group := range ix.partition(records, pool, &res.Stats) {
		ix.compare(records, group, uf, nearEdge, res)
	}

	for _, p := range promoted {
		a, aok := pos[p.A]
		b, bok := pos[p.B]
		if !aok || !bok {
			continue
		}
		uf.union(a, b)
		nearEdge[a] = true
		nearEdge[b] = true
	}

	res.Clusters = ix.collect(records, uf, nearEdge, &res.Stats)
	return res
}

// partition applies the configured scoping strategy, returning candidate
// groups for pairwise comparison. The pool arrives in discovery order.
func (ix *Index) partition(records []*types.Record, pool []int, stats *Stats) [][]int {
	switch ix.scope {
	case config.ScopeGlobal:
		if len(pool) < 2 {
			return nil
		}
		return [][]int{pool}
	case config.ScopeCapped:
		if len(pool) > ix.cap {
			stats.CapEngaged = true
			stats.CapExempted = len(pool) - ix.cap
			log.Printf("[INDEX] near-candidate cap engaged: comparing first %d of %d records", ix.cap, len(pool))
			pool = pool[:ix.cap]
		}
		if len(pool) < 2 {
			return nil
		}
		return [][]int{pool}
	default: // by_group_key
		byGroup := make(map[string][]int)
		var keys []string
		for _, i := range pool {
			k := records[i].GroupKey
			if _, seen := byGroup[k]; !seen {
				keys = append(keys, k)
			}
			byGroup[k] = append(byGroup[k], i)
		}
		groups := make([][]int, 0, len(keys))
		for _, k := range keys {
			if len(byGroup[k]) >= 2 {
				groups = append(groups, byGroup[k])
			}
		}
		return groups
	}
}

// compare runs the pairwise ratio over one candidate group, unioning pairs
// at or above the threshold and collecting borderline pairs inside the
// margin. The upper-bound prefilter is sound: it never skips a pair that
// could reach the floor.
func (ix *Index) compare(records []*types.Record, group []int, uf *unionFind, nearEdge []bool, res *BuildResult) {
	floor := ix.threshold - ix.margin
	cands := make([]*candidate, len(group))
	for i, gi := range group {
		cands[i] = newCandidate(records[gi])
	}
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if upperBound(cands[i], cands[j]) < floor {
				res.Stats.PrefilterSkips++
				continue
			}
			score := Ratio(cands[i].rec.Normalized, cands[j].rec.Normalized)
			res.Stats.Comparisons++
			switch {
			case score >= ix.threshold:
				uf.union(group[i], group[j])
				nearEdge[group[i]] = true
				nearEdge[group[j]] = true
			case ix.margin > 0 && score >= floor:
				res.Borderline = append(res.Borderline, Pair{
					A:     records[group[i]],
					B:     records[group[j]],
					Score: score,
				})
			}
		}
	}
}

// collect materializes non-singleton components as clusters, members and
// clusters both ordered by discovery.
func (ix *Index) collect(records []*types.Record, uf *unionFind, nearEdge []bool, stats *Stats) []*types.DuplicateCluster {
	components := make(map[int][]int)
	var roots []int
	for i := range records {
		root := uf.find(i)
		if _, seen := components[root]; !seen {
			roots = append(roots, root)
		}
		components[root] = append(components[root], i)
	}
	sort.Ints(roots)

	var clusters []*types.DuplicateCluster
	for _, root := range roots {
		members := components[root]
		if len(members) < 2 {
			continue
		}
		kind := types.MatchExact
		for _, m := range members {
			if nearEdge[m] {
				kind = types.MatchNear
				break
			}
		}
		c := &types.DuplicateCluster{Kind: kind, Records: make([]*types.Record, len(members))}
		for i, m := range members {
			c.Records[i] = records[m]
		}
		clusters = append(clusters, c)
		if kind == types.MatchExact {
			stats.ExactClusters++
		} else {
			stats.NearClusters++
		}
	}
	return clusters
}

// unionFind tracks duplicate components. Unions keep the smallest record
// index as the root, so component order is deterministic.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}
