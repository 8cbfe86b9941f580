package extract

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/types"
)

func testDoc(raw string) *corpus.Document {
	return &corpus.Document{
		Path: "topic_original.json",
		Raw:  []byte(raw),
		Tier: types.TierPrimary,
	}
}

func extractAll(t *testing.T, raw string) []*types.Record {
	t.Helper()
	return New(config.DefaultConfig()).Extract(testDoc(raw), 0)
}

func TestExtract_ListShape(t *testing.T) {
	records := extractAll(t, `{"insights": ["first thought", "second thought"]}`)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Text != "first thought" || records[1].Text != "second thought" {
		t.Errorf("unexpected texts: %q, %q", records[0].Text, records[1].Text)
	}
	if got := records[0].Locator.Path(); got != "insights.0" {
		t.Errorf("locator path = %q, want insights.0", got)
	}
	if got := records[1].Locator.Path(); got != "insights.1" {
		t.Errorf("locator path = %q, want insights.1", got)
	}
}

func TestExtract_TextFieldShape(t *testing.T) {
	records := extractAll(t, `{"entries": [{"text": "hold the line", "id": 7}]}`)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Text != "hold the line" {
		t.Errorf("text = %q", records[0].Text)
	}
	if got := records[0].Locator.Path(); got != "entries.0.text" {
		t.Errorf("locator path = %q, want entries.0.text", got)
	}
}

func TestExtract_DocumentOrderPreserved(t *testing.T) {
	raw := `{
		"zebra": {"insights": ["z one"]},
		"alpha": {"insights": ["a one", "a two"]},
		"insight": "standalone"
	}`
	records := extractAll(t, raw)

	want := []string{"z one", "a one", "a two", "standalone"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, text := range want {
		if records[i].Text != text {
			t.Errorf("record %d = %q, want %q (document order, not sorted order)", i, records[i].Text, text)
		}
		if records[i].DiscoveryOrder != i {
			t.Errorf("record %d discovery order = %d", i, records[i].DiscoveryOrder)
		}
	}
}

func TestExtract_DiscoveryOrderBase(t *testing.T) {
	records := New(config.DefaultConfig()).Extract(testDoc(`{"insights": ["a", "b"]}`), 40)
	if records[0].DiscoveryOrder != 40 || records[1].DiscoveryOrder != 41 {
		t.Errorf("orders = %d, %d; want 40, 41", records[0].DiscoveryOrder, records[1].DiscoveryOrder)
	}
}

func TestExtract_SkipsShortAndUnrecognized(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MinRecordLength = 3
	raw := `{
		"insights": ["ok", "   ", "long enough"],
		"notes": ["not a recognized list"],
		"title": "not a recognized text field"
	}`
	records := New(cfg).Extract(testDoc(raw), 0)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Text != "long enough" {
		t.Errorf("text = %q", records[0].Text)
	}
}

func TestExtract_GroupKeyFromNearestAncestor(t *testing.T) {
	raw := `{
		"category": "outer",
		"sections": [
			{"category": "growth", "insights": ["patience pays"]},
			{"insights": ["inherits outer"]}
		]
	}`
	records := extractAll(t, raw)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].GroupKey != "growth" {
		t.Errorf("record 0 group = %q, want growth", records[0].GroupKey)
	}
	if records[1].GroupKey != "outer" {
		t.Errorf("record 1 group = %q, want outer (nearest enclosing)", records[1].GroupKey)
	}
}

func TestExtract_GroupKeyFallsBackToContainer(t *testing.T) {
	records := extractAll(t, `{"sections": [{"insights": ["no category anywhere"]}]}`)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].GroupKey != "sections.insights" {
		t.Errorf("group = %q, want structural fallback sections.insights", records[0].GroupKey)
	}
}

func TestExtract_NestedArrayNotDirectlyInList(t *testing.T) {
	records := extractAll(t, `{"insights": ["direct", ["nested string stays out"]]}`)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Text != "direct" {
		t.Errorf("text = %q", records[0].Text)
	}
}

func TestExtract_TopLevelArray(t *testing.T) {
	records := extractAll(t, `[{"text": "inside object"}, "bare string"]`)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (bare top-level strings have no field name)", len(records))
	}
	if got := records[0].Locator.Path(); got != "0.text" {
		t.Errorf("locator path = %q, want 0.text", got)
	}
}

// Every emitted locator must resolve back to its record's exact text; the
// mutator depends on this when it re-verifies locators before writing.
func TestExtract_LocatorsRoundTrip(t *testing.T) {
	raw := `{
		"category": "mixed",
		"insights": ["one", "two"],
		"sections": [
			{"quote": "deep quote", "quotes": ["qa", "qb"]},
			{"entries": [{"content": "dotted.key sibling"}]}
		],
		"weird.name": {"text": "escaped parent key"}
	}`
	records := extractAll(t, raw)

	if len(records) != 7 {
		t.Fatalf("got %d records, want 7", len(records))
	}
	for _, rec := range records {
		got := gjson.GetBytes([]byte(raw), rec.Locator.Path())
		if !got.Exists() {
			t.Errorf("locator %s does not resolve", rec.Locator.Path())
			continue
		}
		if got.Str != rec.Text {
			t.Errorf("locator %s resolves to %q, want %q", rec.Locator.Path(), got.Str, rec.Text)
		}
	}
}

func TestExtract_MalformedTailIgnoredByParsedTree(t *testing.T) {
	// Documents reach the extractor already validated; this guards the
	// walker against empty trees rather than parse errors.
	records := extractAll(t, `{}`)
	if len(records) != 0 {
		t.Fatalf("got %d records from empty object", len(records))
	}
	records = extractAll(t, `[]`)
	if len(records) != 0 {
		t.Fatalf("got %d records from empty array", len(records))
	}
}
