// Package extract walks JSON document trees and yields text records with
// structural locators. Traversal is depth-first in document order, so
// discovery order matches the file as authored and reproduces across runs.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/types"
)

// Extractor recognizes two record shapes anywhere in a document tree:
// a string value under a recognized text-bearing field name, and a string
// element directly inside a recognized list-of-records field. Everything
// else is traversed but never treated as a record. Read-only; extraction
// has no side effects on the document.
type Extractor struct {
	textFields map[string]bool
	listFields map[string]bool
	groupOrder []string
	minLen     int
}

// New builds an Extractor from the engine configuration
func New(cfg *config.Config) *Extractor {
	e := &Extractor{
		textFields: make(map[string]bool, len(cfg.TextFields)),
		listFields: make(map[string]bool, len(cfg.ListFields)),
		groupOrder: append([]string(nil), cfg.GroupFields...),
		minLen:     cfg.MinRecordLength,
	}
	for _, f := range cfg.TextFields {
		e.textFields[f] = true
	}
	for _, f := range cfg.ListFields {
		e.listFields[f] = true
	}
	return e
}

// Extract returns the document's records in discovery order. Orders are
// assigned base, base+1, ... so callers can number records globally across
// a sorted file set.
func (e *Extractor) Extract(doc *corpus.Document, base int) []*types.Record {
	w := &walker{ex: e, doc: doc, base: base}

	root := gjson.ParseBytes(doc.Raw)
	switch {
	case root.IsObject():
		w.walkObject(root, types.Locator{}, "")
	case root.IsArray():
		// A top-level array has no field name, so its own string elements
		// are not records, but objects inside it still get walked.
		w.walkArray(root, types.Locator{}, "", false)
	}

	return w.records
}

type walker struct {
	ex      *Extractor
	doc     *corpus.Document
	base    int
	records []*types.Record
}

func (w *walker) walkObject(obj gjson.Result, loc types.Locator, group string) {
	// The object's own grouping field applies to its fields and all
	// descendants; nearest enclosing object wins.
	for _, gf := range w.ex.groupOrder {
		if v := obj.Get(gf); v.Type == gjson.String && v.Str != "" {
			group = v.Str
			break
		}
	}

	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.Str
		childLoc := loc.Child(types.KeySeg(name))
		switch {
		case value.IsObject():
			w.walkObject(value, childLoc, group)
		case value.IsArray():
			w.walkArray(value, childLoc, group, w.ex.listFields[name])
		case value.Type == gjson.String && w.ex.textFields[name]:
			w.emit(value.Str, childLoc, group)
		}
		return true
	})
}

func (w *walker) walkArray(arr gjson.Result, loc types.Locator, group string, isRecordList bool) {
	i := 0
	arr.ForEach(func(_, elem gjson.Result) bool {
		elemLoc := loc.Child(types.IndexSeg(i))
		switch {
		case elem.IsObject():
			w.walkObject(elem, elemLoc, group)
		case elem.IsArray():
			// Strings must sit directly inside the recognized list;
			// nested arrays restart unrecognized.
			w.walkArray(elem, elemLoc, group, false)
		case elem.Type == gjson.String && isRecordList:
			w.emit(elem.Str, elemLoc, group)
		}
		i++
		return true
	})
}

func (w *walker) emit(text string, loc types.Locator, group string) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < w.ex.minLen {
		return
	}
	groupKey := group
	if groupKey == "" {
		groupKey = loc.ContainerKey()
	}
	w.records = append(w.records, &types.Record{
		Text:           text,
		Locator:        loc,
		GroupKey:       groupKey,
		Tier:           w.doc.Tier,
		SourceFile:     w.doc.Path,
		DiscoveryOrder: w.base + len(w.records),
	})
}
