// Package mutate applies remove decisions back onto the owning documents.
// All removals are computed against a verified snapshot before any byte of
// a file changes (compute-then-commit), and every removal from one ordered
// container is resolved in a single filtering pass, so earlier removals can
// never shift the indices of later ones.
package mutate

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/types"
)

// FileOutcome records what happened to one document with removals
type FileOutcome struct {
	// File is the document path
	File string `json:"file"`
	// Removed is the number of records removed from the document
	Removed int `json:"removed"`
	// Written is true when the mutated document was persisted to disk.
	// False under dry-run or after a write failure.
	Written bool `json:"written"`
}

// StaleLocatorError means a removal's locator failed re-verification at
// persist time: the path no longer resolves, or resolves to different
// text. This indicates an internal bookkeeping bug, so the file's write is
// aborted and the run as a whole must fail loudly.
type StaleLocatorError struct {
	File    string
	Locator types.Locator
	Reason  string
}

func (e *StaleLocatorError) Error() string {
	return fmt.Sprintf("stale locator in %s at %s: %s", e.File, e.Locator.String(), e.Reason)
}

// Mutator rewrites documents to drop removed records
type Mutator struct {
	dryRun bool
}

// New creates a Mutator. Under dry-run everything is computed and verified
// but nothing is written.
func New(dryRun bool) *Mutator {
	return &Mutator{dryRun: dryRun}
}

// Apply executes the remove decisions against the loaded documents.
// Documents without removals are never touched or rewritten. Returns the
// per-file outcomes (files with removals only), any per-file write
// failures, and a fatal error on the first stale locator. Outcomes
// reflect exactly what was committed before any failure.
func (m *Mutator) Apply(docs []*corpus.Document, resolutions []*types.Resolution) ([]FileOutcome, []types.FileFailure, error) {
	byFile := make(map[string][]*types.Record)
	for _, res := range resolutions {
		for _, rec := range res.Remove {
			byFile[rec.SourceFile] = append(byFile[rec.SourceFile], rec)
		}
	}

	var outcomes []FileOutcome
	var failures []types.FileFailure

	for _, doc := range docs {
		removals := byFile[doc.Path]
		if len(removals) == 0 {
			continue
		}

		mutated, err := m.mutateDocument(doc, removals)
		if err != nil {
			return outcomes, failures, err
		}

		outcome := FileOutcome{File: doc.Path, Removed: len(removals)}
		if m.dryRun {
			log.Printf("[MUTATE] dry-run: would remove %d record(s) from %s", len(removals), doc.Path)
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := persist(doc.Path, mutated); err != nil {
			log.Printf("[MUTATE] write failed for %s: %v", doc.Path, err)
			failures = append(failures, types.FileFailure{
				File:   doc.Path,
				Kind:   types.ErrIOFailure,
				Detail: err.Error(),
			})
			outcomes = append(outcomes, outcome)
			continue
		}

		doc.Raw = mutated
		outcome.Written = true
		outcomes = append(outcomes, outcome)
		log.Printf("[MUTATE] removed %d record(s) from %s", len(removals), doc.Path)
	}

	return outcomes, failures, nil
}

// edit is one planned mutation: either a whole-container filter or a
// single field deletion.
type edit struct {
	path    string
	depth   int
	indices map[int]bool // nil for field deletions
}

// mutateDocument plans and applies a file's removals. Every locator is
// verified against the document before anything changes.
func (m *Mutator) mutateDocument(doc *corpus.Document, removals []*types.Record) ([]byte, error) {
	for _, rec := range removals {
		if err := verify(doc, rec); err != nil {
			return nil, err
		}
	}

	// Plan: array-element removals collapse into one filter per container;
	// field-shape removals delete their field.
	containers := make(map[string]*edit)
	var edits []*edit
	for _, rec := range removals {
		leaf, ok := rec.Locator.Leaf()
		if !ok {
			return nil, &StaleLocatorError{File: doc.Path, Locator: rec.Locator, Reason: "empty locator"}
		}
		if leaf.IsIndex {
			cpath := rec.Locator.Container().Path()
			e, ok := containers[cpath]
			if !ok {
				e = &edit{path: cpath, depth: len(rec.Locator.Segs) - 1, indices: make(map[int]bool)}
				containers[cpath] = e
				edits = append(edits, e)
			}
			e.indices[leaf.Index] = true
		} else {
			edits = append(edits, &edit{path: rec.Locator.Path(), depth: len(rec.Locator.Segs)})
		}
	}

	// Deeper edits first: filtering a container shifts indices beneath it,
	// so nothing below a container may still be pending when it rewrites.
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].depth > edits[j].depth })

	out := doc.Raw
	var err error
	for _, e := range edits {
		if e.indices == nil {
			out, err = sjson.DeleteBytes(out, e.path)
			if err != nil {
				return nil, &StaleLocatorError{File: doc.Path,
					Locator: types.Locator{}, Reason: fmt.Sprintf("deleting %s: %v", e.path, err)}
			}
			continue
		}
		out, err = filterContainer(doc.Path, out, e)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// verify confirms a locator still resolves to the record's exact text
func verify(doc *corpus.Document, rec *types.Record) error {
	v := gjson.GetBytes(doc.Raw, rec.Locator.Path())
	if !v.Exists() {
		return &StaleLocatorError{File: doc.Path, Locator: rec.Locator, Reason: "path does not resolve"}
	}
	if v.Type != gjson.String {
		return &StaleLocatorError{File: doc.Path, Locator: rec.Locator,
			Reason: fmt.Sprintf("expected string, found %s", v.Type)}
	}
	if v.Str != rec.Text {
		return &StaleLocatorError{File: doc.Path, Locator: rec.Locator,
			Reason: fmt.Sprintf("text mismatch: document has %q", v.Str)}
	}
	return nil
}

// filterContainer rebuilds one array with the removed indices filtered out
// in a single pass. Surviving elements keep their exact raw bytes.
func filterContainer(file string, doc []byte, e *edit) ([]byte, error) {
	arr := gjson.GetBytes(doc, e.path)
	if !arr.IsArray() {
		return nil, &StaleLocatorError{File: file,
			Locator: types.Locator{}, Reason: fmt.Sprintf("container %s is not an array", e.path)}
	}
	elems := arr.Array()
	for idx := range e.indices {
		if idx < 0 || idx >= len(elems) {
			return nil, &StaleLocatorError{File: file,
				Locator: types.Locator{}, Reason: fmt.Sprintf("index %d out of range in %s", idx, e.path)}
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range elems {
		if e.indices[i] {
			continue
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.WriteString(elem.Raw)
	}
	buf.WriteByte(']')

	out, err := sjson.SetRawBytes(doc, e.path, buf.Bytes())
	if err != nil {
		return nil, &StaleLocatorError{File: file,
			Locator: types.Locator{}, Reason: fmt.Sprintf("rewriting %s: %v", e.path, err)}
	}
	return out, nil
}

// persist writes atomically: temp file in the same directory, then rename
func persist(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".winnow-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		// Preserve the original file's permissions across the rename.
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
