package types

import (
	"testing"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ProvenanceTier
		wantErr bool
	}{
		{name: "primary", input: "primary", want: TierPrimary},
		{name: "mixed case", input: "Derived", want: TierDerived},
		{name: "surrounding whitespace", input: "  generated ", want: TierGenerated},
		{name: "unknown", input: "authoritative", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRecord_Validate(t *testing.T) {
	valid := func() *Record {
		return &Record{
			Text:           "Growth requires patience.",
			Locator:        Locator{Segs: []PathSeg{KeySeg("insights"), IndexSeg(0)}},
			GroupKey:       "growth",
			Tier:           TierPrimary,
			SourceFile:     "topic_original.json",
			DiscoveryOrder: 0,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr bool
	}{
		{name: "valid record", mutate: func(r *Record) {}, wantErr: false},
		{name: "whitespace-only text", mutate: func(r *Record) { r.Text = "   " }, wantErr: true},
		{name: "no locator", mutate: func(r *Record) { r.Locator = Locator{} }, wantErr: true},
		{name: "bad tier", mutate: func(r *Record) { r.Tier = "platinum" }, wantErr: true},
		{name: "no source file", mutate: func(r *Record) { r.SourceFile = "" }, wantErr: true},
		{name: "negative discovery order", mutate: func(r *Record) { r.DiscoveryOrder = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolution_Validate(t *testing.T) {
	a := &Record{Text: "a", SourceFile: "a.json"}
	b := &Record{Text: "b", SourceFile: "b.json"}
	c := &Record{Text: "c", SourceFile: "c.json"}
	cluster := &DuplicateCluster{Records: []*Record{a, b, c}, Kind: MatchExact}

	tests := []struct {
		name    string
		res     *Resolution
		wantErr bool
	}{
		{
			name: "valid",
			res:  &Resolution{Keep: a, Remove: []*Record{b, c}, Cluster: cluster},
		},
		{
			name:    "nil keep",
			res:     &Resolution{Remove: []*Record{b}},
			wantErr: true,
		},
		{
			name:    "empty remove",
			res:     &Resolution{Keep: a},
			wantErr: true,
		},
		{
			name:    "keep also removed",
			res:     &Resolution{Keep: a, Remove: []*Record{a, b}},
			wantErr: true,
		},
		{
			name:    "count mismatch against cluster",
			res:     &Resolution{Keep: a, Remove: []*Record{b}, Cluster: cluster},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.res.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
