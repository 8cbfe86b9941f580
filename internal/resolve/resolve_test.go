package resolve

import (
	"testing"

	"github.com/steveyegge/winnow/internal/types"
)

func member(file string, tier types.ProvenanceTier, order int) *types.Record {
	return &types.Record{
		Text:           "Growth requires patience.",
		Locator:        types.Locator{Segs: []types.PathSeg{types.KeySeg("insight")}},
		GroupKey:       "growth",
		Tier:           tier,
		SourceFile:     file,
		DiscoveryOrder: order,
	}
}

func cluster(records ...*types.Record) *types.DuplicateCluster {
	return &types.DuplicateCluster{Records: records, Kind: types.MatchExact}
}

// A generated record discovered first (and sorting first by file name)
// must still lose to the primary record.
func TestResolve_TierSafety(t *testing.T) {
	generated := member("aaa_generated.json", types.TierGenerated, 0)
	primary := member("zzz_original.json", types.TierPrimary, 5)

	res := New(types.DefaultTierOrder).Resolve(cluster(generated, primary))
	if res.Keep != primary {
		t.Errorf("kept %s (%s), want the primary record", res.Keep.SourceFile, res.Keep.Tier)
	}
	if len(res.Remove) != 1 || res.Remove[0] != generated {
		t.Errorf("expected the generated record in the remove set")
	}
}

func TestResolve_TieBreaks(t *testing.T) {
	tests := []struct {
		name     string
		members  []*types.Record
		wantKeep int // index into members
	}{
		{
			name: "tier beats file order",
			members: []*types.Record{
				member("a.json", types.TierDerived, 0),
				member("b.json", types.TierPrimary, 1),
			},
			wantKeep: 1,
		},
		{
			name: "equal tier falls back to file order",
			members: []*types.Record{
				member("b.json", types.TierDerived, 0),
				member("a.json", types.TierDerived, 1),
			},
			wantKeep: 1,
		},
		{
			name: "equal tier and file falls back to discovery order",
			members: []*types.Record{
				member("a.json", types.TierGenerated, 7),
				member("a.json", types.TierGenerated, 3),
			},
			wantKeep: 1,
		},
	}

	r := New(types.DefaultTierOrder)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(cluster(tt.members...))
			if res.Keep != tt.members[tt.wantKeep] {
				t.Errorf("kept %s order=%d, want member %d",
					res.Keep.SourceFile, res.Keep.DiscoveryOrder, tt.wantKeep)
			}
			if err := res.Validate(); err != nil {
				t.Errorf("resolution invalid: %v", err)
			}
		})
	}
}

// A custom ordering can invert the default priorities.
func TestResolve_CustomTierOrder(t *testing.T) {
	primary := member("a.json", types.TierPrimary, 0)
	generated := member("b.json", types.TierGenerated, 1)

	inverted := []types.ProvenanceTier{types.TierGenerated, types.TierDerived, types.TierPrimary}
	res := New(inverted).Resolve(cluster(primary, generated))
	if res.Keep != generated {
		t.Errorf("kept %s, want the generated record under inverted ordering", res.Keep.Tier)
	}
}

// A tier missing from the configured ordering ranks below every listed one.
func TestResolve_UnlistedTierRanksLast(t *testing.T) {
	derived := member("z.json", types.TierDerived, 9)
	generated := member("a.json", types.TierGenerated, 0)

	res := New([]types.ProvenanceTier{types.TierPrimary, types.TierDerived}).
		Resolve(cluster(generated, derived))
	if res.Keep != derived {
		t.Errorf("kept %s, want the derived record over the unlisted tier", res.Keep.Tier)
	}
}

func TestResolveAll_IndependentClusters(t *testing.T) {
	c1 := cluster(
		member("a.json", types.TierPrimary, 0),
		member("b.json", types.TierDerived, 1),
	)
	c2 := cluster(
		member("c.json", types.TierGenerated, 2),
		member("d.json", types.TierGenerated, 3),
	)

	resolutions := New(types.DefaultTierOrder).ResolveAll([]*types.DuplicateCluster{c1, c2})
	if len(resolutions) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(resolutions))
	}
	if resolutions[0].Keep.SourceFile != "a.json" {
		t.Errorf("cluster 1 kept %s, want a.json", resolutions[0].Keep.SourceFile)
	}
	if resolutions[1].Keep.SourceFile != "c.json" {
		t.Errorf("cluster 2 kept %s, want c.json", resolutions[1].Keep.SourceFile)
	}
}
