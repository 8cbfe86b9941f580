// Package corpus discovers and loads the file set a deduplication run
// operates on. Discovery order is deterministic (lexically sorted) so
// downstream tie-breaks reproduce across runs on unchanged input.
package corpus

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/types"
)

// ArtifactDirName is the per-corpus directory holding reports and the run
// ledger. Excluded from discovery so engine output never feeds back into
// the corpus.
const ArtifactDirName = ".winnow"

// Document is one loaded corpus file
type Document struct {
	// Path is the file's path as discovered
	Path string
	// Raw is the file's exact byte content at load time
	Raw []byte
	// Tier is the provenance tier inferred from the file name
	Tier types.ProvenanceTier
}

// LoadError classifies a per-file load failure so the run can isolate it
type LoadError struct {
	File string
	Kind types.ErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Kind)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Failure converts the error to its report form
func (e *LoadError) Failure() types.FileFailure {
	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	return types.FileFailure{File: e.File, Kind: e.Kind, Detail: detail}
}

// Discover resolves the corpus path to a sorted list of candidate files.
// A file path is the corpus by itself; a directory yields the *.json files
// directly inside it, or the whole subtree when recursive is set. Hidden
// entries and the artifact directory are skipped.
func Discover(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf(`cannot access corpus path %s: %w

To fix:
  1. Check the path exists: ls %s
  2. Pass either a single JSON file or a directory of JSON files`, path, err, path)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			name := d.Name()
			if d.IsDir() {
				if p != path && (strings.HasPrefix(name, ".") || name == ArtifactDirName) {
					return fs.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			if strings.EqualFold(filepath.Ext(name), ".json") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking corpus directory %s: %w", path, err)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading corpus directory %s: %w", path, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			if strings.EqualFold(filepath.Ext(name), ".json") {
				files = append(files, filepath.Join(path, name))
			}
		}
	}

	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf(`no JSON corpus files found under %s

The corpus must contain at least one *.json document. To fix:
  1. Check the directory contents: ls %s
  2. Point at the directory that holds your record documents
  3. Use --recursive if the documents live in subdirectories`, path, path)
	}

	return files, nil
}

// Load reads and validates one corpus file. Failures come back as a
// *LoadError carrying the error kind for the report.
func Load(path string, patterns []config.TierPattern) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Kind: types.ErrIOFailure, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &LoadError{File: path, Kind: types.ErrMalformedDocument}
	}
	return &Document{
		Path: path,
		Raw:  data,
		Tier: InferTier(path, patterns),
	}, nil
}

// LoadAll loads every file, isolating per-file failures. The returned
// documents keep the input order; failures are collected for the report.
func LoadAll(files []string, patterns []config.TierPattern) ([]*Document, []types.FileFailure) {
	docs := make([]*Document, 0, len(files))
	var failures []types.FileFailure

	for _, file := range files {
		doc, err := Load(file, patterns)
		if err != nil {
			var loadErr *LoadError
			if le, ok := err.(*LoadError); ok {
				loadErr = le
			} else {
				loadErr = &LoadError{File: file, Kind: types.ErrIOFailure, Err: err}
			}
			log.Printf("[CORPUS] skipping %s: %v", file, err)
			failures = append(failures, loadErr.Failure())
			continue
		}
		docs = append(docs, doc)
	}

	return docs, failures
}

// InferTier classifies a file into a provenance tier by name. Patterns are
// checked in order against the lower-cased base name; the first match
// wins. Unmatched files are generated, so hand-authored content can never
// lose a conflict to a file the patterns do not recognize.
func InferTier(path string, patterns []config.TierPattern) types.ProvenanceTier {
	name := strings.ToLower(filepath.Base(path))
	for _, p := range patterns {
		if strings.Contains(name, strings.ToLower(p.Contains)) {
			return p.Tier
		}
	}
	return types.TierGenerated
}
