package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/winnow/internal/report"
	"github.com/steveyegge/winnow/internal/types"
)

func sampleReport(id string, started time.Time) *report.Report {
	return &report.Report{
		RunID:           id,
		StartedAt:       started,
		FinishedAt:      started.Add(2 * time.Second),
		CorpusPath:      "/corpus",
		Threshold:       0.85,
		Scope:           "by_group_key",
		Success:         true,
		TotalRecords:    3,
		ExactClusters:   1,
		RecordsRemoved:  1,
		UniquenessRatio: 2.0 / 3.0,
		Files: []report.FileDetail{
			{File: "/corpus/topic_advanced.json", Records: 1, Removals: 1, Written: true},
			{File: "/corpus/topic_original.json", Records: 1},
		},
		Failures: []types.FileFailure{
			{File: "/corpus/broken.json", Kind: types.ErrMalformedDocument},
		},
	}
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	r := sampleReport("run-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, l.RecordRun(ctx, r))

	runs, err := l.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 3, runs[0].TotalRecords)
	assert.Equal(t, 1, runs[0].RecordsRemoved)
	assert.InDelta(t, 2.0/3.0, runs[0].UniquenessRatio, 1e-9)
	assert.True(t, runs[0].Success)

	files, err := l.RunFiles(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, files, 3)
	// Sorted by file: broken, then advanced, then original.
	assert.Equal(t, "/corpus/broken.json", files[0].File)
	assert.Equal(t, "malformed_document", files[0].ErrorKind)
	assert.Equal(t, 1, files[1].Removals)
	assert.Equal(t, 0, files[2].Removals)
}

func TestListRuns_NewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		r := sampleReport(id, base.Add(time.Duration(i)*time.Minute))
		r.Files = nil
		r.Failures = nil
		require.NoError(t, l.RecordRun(ctx, r))
	}

	runs, err := l.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestRunFiles_UnknownRun(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.RunFiles(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestDBPath_EnvOverride(t *testing.T) {
	t.Setenv("WINNOW_DB_PATH", "/tmp/custom.db")
	assert.Equal(t, "/tmp/custom.db", DBPath("/corpus"))

	t.Setenv("WINNOW_DB_PATH", "")
	got := DBPath("/corpus")
	assert.Equal(t, filepath.Join("/corpus", ".winnow", "ledger.db"), got)
}
