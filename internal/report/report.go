// Package report aggregates one run's statistics for auditability. Every
// count is computed from the decisions made during the run, never by
// re-reading disk, so the report cannot diverge from what was actually
// committed.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/steveyegge/winnow/internal/mutate"
	"github.com/steveyegge/winnow/internal/similarity"
	"github.com/steveyegge/winnow/internal/types"
)

// ReportFileName is the machine-readable summary artifact
const ReportFileName = "report.json"

// ManifestFileName is the per-removal audit manifest, one JSON line per
// removed record
const ManifestFileName = "removals.jsonl"

// FileDetail is one file's scan and removal counts
type FileDetail struct {
	File     string `json:"file"`
	Records  int    `json:"records"`
	Removals int    `json:"removals"`
	Written  bool   `json:"written"`
}

// AdjudicationStats tracks the optional Claude borderline pass
type AdjudicationStats struct {
	Calls         int   `json:"calls"`
	PromotedPairs int   `json:"promoted_pairs"`
	InputTokens   int64 `json:"input_tokens"`
	OutputTokens  int64 `json:"output_tokens"`
}

// RemovalEntry is one removed record in the audit manifest
type RemovalEntry struct {
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	Locator    string `json:"locator"`
	GroupKey   string `json:"group_key"`
	Tier       string `json:"tier"`
	KeptIn     string `json:"kept_in"`
	Kind       string `json:"kind"`
}

// Report is the machine-readable summary of one engine run
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CorpusPath string    `json:"corpus_path"`
	Threshold  float64   `json:"similarity_threshold"`
	Scope      string    `json:"group_scope"`
	DryRun     bool      `json:"dry_run"`
	Success    bool      `json:"success"`

	TotalRecords     int     `json:"total_records"`
	ExactClusters    int     `json:"exact_clusters"`
	NearClusters     int     `json:"near_clusters"`
	RecordsRemoved   int     `json:"records_removed"`
	RecordsRemaining int     `json:"records_remaining"`
	UniquenessRatio  float64 `json:"uniqueness_ratio"`

	CapEngaged     bool `json:"cap_engaged,omitempty"`
	CapExempted    int  `json:"cap_exempted,omitempty"`
	VetoedClusters int  `json:"vetoed_clusters,omitempty"`

	Files        []FileDetail        `json:"files"`
	Failures     []types.FileFailure `json:"failures,omitempty"`
	Adjudication *AdjudicationStats  `json:"adjudication,omitempty"`

	Removals []RemovalEntry `json:"-"`
}

// Builder accumulates run statistics as the pipeline progresses
type Builder struct {
	report         Report
	records        map[string]int // per-file scanned record counts
	outcomesByFile []mutate.FileOutcome
}

// NewBuilder starts a report for one run
func NewBuilder(corpusPath string, threshold float64, scope string, dryRun bool) *Builder {
	return &Builder{
		report: Report{
			RunID:      uuid.New().String(),
			StartedAt:  time.Now().UTC(),
			CorpusPath: corpusPath,
			Threshold:  threshold,
			Scope:      scope,
			DryRun:     dryRun,
		},
		records: make(map[string]int),
	}
}

// RunID returns the run's identifier
func (b *Builder) RunID() string {
	return b.report.RunID
}

// FileScanned records how many records one file contributed
func (b *Builder) FileScanned(file string, count int) {
	b.records[file] = count
	b.report.TotalRecords += count
}

// Failure records one per-file error
func (b *Builder) Failure(f types.FileFailure) {
	b.report.Failures = append(b.report.Failures, f)
}

// IndexStats copies the similarity index metrics
func (b *Builder) IndexStats(stats similarity.Stats) {
	b.report.ExactClusters = stats.ExactClusters
	b.report.NearClusters = stats.NearClusters
	b.report.CapEngaged = stats.CapEngaged
	b.report.CapExempted = stats.CapExempted
}

// Vetoed records clusters dropped by the review session
func (b *Builder) Vetoed(n int) {
	b.report.VetoedClusters = n
}

// Adjudication records the borderline pass metrics
func (b *Builder) Adjudication(stats AdjudicationStats) {
	b.report.Adjudication = &stats
}

// Removals records the accepted removal decisions for the audit manifest
func (b *Builder) Removals(resolutions []*types.Resolution) {
	for _, res := range resolutions {
		kind := ""
		if res.Cluster != nil {
			kind = string(res.Cluster.Kind)
		}
		for _, rec := range res.Remove {
			b.report.Removals = append(b.report.Removals, RemovalEntry{
				Text:       rec.Text,
				SourceFile: rec.SourceFile,
				Locator:    rec.Locator.String(),
				GroupKey:   rec.GroupKey,
				Tier:       string(rec.Tier),
				KeptIn:     res.Keep.SourceFile,
				Kind:       kind,
			})
		}
	}
}

// Outcomes records what the mutator committed
func (b *Builder) Outcomes(outcomes []mutate.FileOutcome) {
	for _, o := range outcomes {
		b.report.RecordsRemoved += o.Removed
	}
	b.outcomesByFile = outcomes
}

// Finish computes the derived fields and returns the completed report
func (b *Builder) Finish(success bool) *Report {
	r := &b.report
	r.FinishedAt = time.Now().UTC()
	r.Success = success
	r.RecordsRemaining = r.TotalRecords - r.RecordsRemoved
	if r.TotalRecords > 0 {
		r.UniquenessRatio = float64(r.RecordsRemaining) / float64(r.TotalRecords)
	}

	written := make(map[string]mutate.FileOutcome, len(b.outcomesByFile))
	for _, o := range b.outcomesByFile {
		written[o.File] = o
	}
	files := make([]string, 0, len(b.records))
	for f := range b.records {
		files = append(files, f)
	}
	sort.Strings(files)
	r.Files = make([]FileDetail, 0, len(files))
	for _, f := range files {
		o := written[f]
		r.Files = append(r.Files, FileDetail{
			File:     f,
			Records:  b.records[f],
			Removals: o.Removed,
			Written:  o.Written,
		})
	}
	return r
}

// WriteArtifacts persists report.json and the removals manifest to dir
func (r *Report) WriteArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportFileName), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return fmt.Errorf("writing removal manifest: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, entry := range r.Removals {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("writing removal manifest: %w", err)
		}
	}
	return nil
}

// Render writes the human-readable summary
func (r *Report) Render(w io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("Corpus Deduplication Report"))
	fmt.Fprintf(w, "  %s %s\n", gray("Run:"), r.RunID)
	fmt.Fprintf(w, "  %s %s\n", gray("Corpus:"), r.CorpusPath)
	fmt.Fprintf(w, "  %s %.2f (%s)\n", gray("Threshold:"), r.Threshold, r.Scope)
	if r.DryRun {
		fmt.Fprintf(w, "  %s\n", yellow("DRY RUN — no files were modified"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Records scanned:    %d\n", r.TotalRecords)
	fmt.Fprintf(w, "  Exact clusters:     %d\n", r.ExactClusters)
	fmt.Fprintf(w, "  Near clusters:      %d\n", r.NearClusters)
	fmt.Fprintf(w, "  Records removed:    %d\n", r.RecordsRemoved)
	fmt.Fprintf(w, "  Records remaining:  %d\n", r.RecordsRemaining)
	fmt.Fprintf(w, "  Uniqueness ratio:   %.3f\n", r.UniquenessRatio)
	if r.VetoedClusters > 0 {
		fmt.Fprintf(w, "  Vetoed clusters:    %d\n", r.VetoedClusters)
	}
	if r.CapEngaged {
		fmt.Fprintf(w, "  %s candidate cap engaged: %d record(s) exempt from near comparison\n",
			yellow("⚠"), r.CapExempted)
	}
	if r.Adjudication != nil {
		fmt.Fprintf(w, "  Adjudication:       %d call(s), %d pair(s) promoted, %d in / %d out tokens\n",
			r.Adjudication.Calls, r.Adjudication.PromotedPairs,
			r.Adjudication.InputTokens, r.Adjudication.OutputTokens)
	}
	fmt.Fprintln(w)

	for _, f := range r.Files {
		switch {
		case f.Removals == 0:
			fmt.Fprintf(w, "  %s %s: %d record(s), unchanged\n", green("✓"), f.File, f.Records)
		case f.Written:
			fmt.Fprintf(w, "  %s %s: %d record(s), %d removed\n", green("✓"), f.File, f.Records, f.Removals)
		default:
			fmt.Fprintf(w, "  %s %s: %d record(s), %d removal(s) pending\n", yellow("⚠"), f.File, f.Records, f.Removals)
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s %s: %s", red("✗"), f.File, f.Kind)
		if f.Detail != "" {
			fmt.Fprintf(w, " (%s)", f.Detail)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	if r.Success {
		fmt.Fprintf(w, "%s Run complete\n", green("✓"))
	} else {
		fmt.Fprintf(w, "%s Run failed — see failures above\n", red("✗"))
	}
}
