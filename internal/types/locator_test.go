package types

import (
	"testing"
)

func TestLocator_Path(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{
			name: "key then index",
			loc:  Locator{Segs: []PathSeg{KeySeg("insights"), IndexSeg(2)}},
			want: "insights.2",
		},
		{
			name: "nested containers",
			loc:  Locator{Segs: []PathSeg{KeySeg("sections"), IndexSeg(0), KeySeg("quotes"), IndexSeg(11)}},
			want: "sections.0.quotes.11",
		},
		{
			name: "key with dot is escaped",
			loc:  Locator{Segs: []PathSeg{KeySeg("fav.topic"), KeySeg("text")}},
			want: `fav\.topic.text`,
		},
		{
			name: "key with wildcard is escaped",
			loc:  Locator{Segs: []PathSeg{KeySeg("a*b"), IndexSeg(1)}},
			want: `a\*b.1`,
		},
		{
			name: "empty locator",
			loc:  Locator{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Path(); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocator_Container(t *testing.T) {
	loc := Locator{Segs: []PathSeg{KeySeg("insights"), IndexSeg(3)}}
	container := loc.Container()
	if got := container.Path(); got != "insights" {
		t.Errorf("Container().Path() = %q, want %q", got, "insights")
	}

	leaf, ok := loc.Leaf()
	if !ok || !leaf.IsIndex || leaf.Index != 3 {
		t.Errorf("Leaf() = %+v, %v; want index seg 3", leaf, ok)
	}

	if _, ok := (Locator{}).Leaf(); ok {
		t.Error("empty locator should have no leaf")
	}
}

func TestLocator_ChildDoesNotAliasParent(t *testing.T) {
	parent := Locator{Segs: []PathSeg{KeySeg("sections"), IndexSeg(0)}}
	a := parent.Child(KeySeg("insights")).Child(IndexSeg(0))
	b := parent.Child(KeySeg("quotes")).Child(IndexSeg(1))

	if got := a.Path(); got != "sections.0.insights.0" {
		t.Errorf("first child path = %q", got)
	}
	if got := b.Path(); got != "sections.0.quotes.1" {
		t.Errorf("sibling child path = %q", got)
	}
}

func TestLocator_ContainerKey(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{
			name: "strips indices",
			loc:  Locator{Segs: []PathSeg{KeySeg("sections"), IndexSeg(4), KeySeg("insights"), IndexSeg(9)}},
			want: "sections.insights",
		},
		{
			name: "field shape keeps container keys only",
			loc:  Locator{Segs: []PathSeg{KeySeg("entries"), IndexSeg(0), KeySeg("text")}},
			want: "entries",
		},
		{
			name: "top-level list",
			loc:  Locator{Segs: []PathSeg{KeySeg("insights"), IndexSeg(0)}},
			want: "insights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.ContainerKey(); got != tt.want {
				t.Errorf("ContainerKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
