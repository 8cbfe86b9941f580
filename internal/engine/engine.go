// Package engine wires the deduplication pipeline into one batch run:
// load, extract, fingerprint, index, resolve, optionally adjudicate and
// review, then mutate and report. All removal decisions are computed
// before any write occurs; interruption before the persist step leaves
// every file untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/steveyegge/winnow/internal/adjudicate"
	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/extract"
	"github.com/steveyegge/winnow/internal/fingerprint"
	"github.com/steveyegge/winnow/internal/ledger"
	"github.com/steveyegge/winnow/internal/mutate"
	"github.com/steveyegge/winnow/internal/report"
	"github.com/steveyegge/winnow/internal/resolve"
	"github.com/steveyegge/winnow/internal/review"
	"github.com/steveyegge/winnow/internal/similarity"
	"github.com/steveyegge/winnow/internal/types"
)

// Reviewer walks planned removals before commit. Implemented by
// review.Session; tests inject scripted fakes.
type Reviewer interface {
	Review(resolutions []*types.Resolution) (*review.Outcome, error)
}

// Adjudicator judges borderline near-duplicate pairs. Implemented by
// adjudicate.Adjudicator.
type Adjudicator interface {
	Judge(ctx context.Context, pairs []similarity.Pair) ([]similarity.Pair, adjudicate.Usage)
}

// Options are the per-run knobs beyond the engine configuration
type Options struct {
	// DryRun computes and verifies everything but writes no corpus file
	DryRun bool
	// Recursive extends directory discovery into subdirectories
	Recursive bool
	// ReportDir overrides the artifact directory (default <corpus>/.winnow)
	ReportDir string
	// SkipLedger disables the best-effort run archive
	SkipLedger bool
}

// Engine runs the batch deduplication pass
type Engine struct {
	cfg         *config.Config
	opts        Options
	reviewer    Reviewer
	adjudicator Adjudicator
}

// New builds an Engine. The configuration must already be validated.
func New(cfg *config.Config, opts Options) *Engine {
	return &Engine{cfg: cfg, opts: opts}
}

// SetReviewer enables interactive pre-commit review
func (e *Engine) SetReviewer(r Reviewer) {
	e.reviewer = r
}

// SetAdjudicator enables the borderline Claude pass
func (e *Engine) SetAdjudicator(a Adjudicator) {
	e.adjudicator = a
}

// Run executes one batch pass over the corpus. The returned report
// reflects exactly what was committed, including on failure; the error is
// non-nil when the run as a whole failed (nothing processable, or a stale
// locator aborted a write).
func (e *Engine) Run(ctx context.Context, corpusPath string) (*report.Report, error) {
	files, err := corpus.Discover(corpusPath, e.opts.Recursive)
	if err != nil {
		return nil, err
	}

	builder := report.NewBuilder(corpusPath, e.cfg.SimilarityThreshold,
		string(e.cfg.GroupScope), e.opts.DryRun)
	log.Printf("[ENGINE] run %s: %d candidate file(s) under %s", builder.RunID(), len(files), corpusPath)

	docs, loadFailures := corpus.LoadAll(files, e.cfg.TierPatterns)
	for _, f := range loadFailures {
		builder.Failure(f)
	}
	if len(docs) == 0 {
		rep := builder.Finish(false)
		e.emit(rep, corpusPath)
		return rep, fmt.Errorf("no corpus files could be processed (%d failed)", len(loadFailures))
	}

	// Extract and fingerprint in one deterministic sweep: files in sorted
	// order, records in document order.
	extractor := extract.New(e.cfg)
	var records []*types.Record
	for _, doc := range docs {
		recs := extractor.Extract(doc, len(records))
		for _, rec := range recs {
			rec.Normalized = fingerprint.Normalize(rec.Text)
			rec.Fingerprint = fingerprint.Hash(rec.Normalized)
		}
		builder.FileScanned(doc.Path, len(recs))
		records = append(records, recs...)
	}
	log.Printf("[ENGINE] extracted %d record(s) from %d file(s)", len(records), len(docs))

	index := similarity.New(e.cfg)
	result := index.Build(records, nil)

	if e.adjudicator != nil && len(result.Borderline) > 0 {
		confirmed, usage := e.adjudicator.Judge(ctx, result.Borderline)
		builder.Adjudication(report.AdjudicationStats{
			Calls:         usage.Calls,
			PromotedPairs: usage.PromotedPairs,
			InputTokens:   usage.InputTokens,
			OutputTokens:  usage.OutputTokens,
		})
		if len(confirmed) > 0 {
			result = index.Build(records, confirmed)
		}
	}
	builder.IndexStats(result.Stats)

	resolutions := resolve.New(e.cfg.TierResolver).ResolveAll(result.Clusters)
	log.Printf("[ENGINE] %d cluster(s) resolved (%d exact, %d near)",
		len(result.Clusters), result.Stats.ExactClusters, result.Stats.NearClusters)

	if e.reviewer != nil && len(resolutions) > 0 {
		outcome, err := e.reviewer.Review(resolutions)
		if err != nil {
			rep := builder.Finish(false)
			e.emit(rep, corpusPath)
			return rep, fmt.Errorf("review session failed: %w", err)
		}
		resolutions = outcome.Accepted
		builder.Vetoed(outcome.Vetoed)
	}
	builder.Removals(resolutions)

	outcomes, writeFailures, mutateErr := mutate.New(e.opts.DryRun).Apply(docs, resolutions)
	builder.Outcomes(outcomes)
	for _, f := range writeFailures {
		builder.Failure(f)
	}

	success := mutateErr == nil && !allWritesFailed(outcomes, e.opts.DryRun)
	rep := builder.Finish(success)
	e.emit(rep, corpusPath)

	var staleErr *mutate.StaleLocatorError
	switch {
	case errors.As(mutateErr, &staleErr):
		return rep, fmt.Errorf("data integrity violation, run aborted: %w", mutateErr)
	case mutateErr != nil:
		return rep, mutateErr
	case !success:
		return rep, fmt.Errorf("no file with removals could be written (%d failed)", len(writeFailures))
	}
	return rep, nil
}

// allWritesFailed reports whether removals were planned but not one file
// could be persisted
func allWritesFailed(outcomes []mutate.FileOutcome, dryRun bool) bool {
	if dryRun || len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o.Written {
			return false
		}
	}
	return true
}

// emit writes the report artifacts and the ledger row, both best-effort:
// the run's outcome never depends on them.
func (e *Engine) emit(rep *report.Report, corpusPath string) {
	dir := e.opts.ReportDir
	if dir == "" {
		dir = defaultArtifactDir(corpusPath)
	}
	if err := rep.WriteArtifacts(dir); err != nil {
		log.Printf("[ENGINE] report artifacts not written: %v", err)
	}

	if e.opts.SkipLedger {
		return
	}
	l, err := ledger.Open(ledger.DBPath(corpusPath))
	if err != nil {
		log.Printf("[LEDGER] unavailable, run not archived: %v", err)
		return
	}
	defer l.Close()
	if err := l.RecordRun(context.Background(), rep); err != nil {
		log.Printf("[LEDGER] run not archived: %v", err)
	}
}

func defaultArtifactDir(corpusPath string) string {
	dir := corpusPath
	if info, err := os.Stat(corpusPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(corpusPath)
	}
	return filepath.Join(dir, corpus.ArtifactDirName)
}
