package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/winnow/internal/ledger"
)

var (
	historyRunID  string
	historyLimit  int
	historyJSON   bool
	historyCorpus string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past deduplication runs from the ledger",
	Long: `List runs archived in the corpus ledger, newest first.

The ledger lives at <corpus>/.winnow/ledger.db (override with
WINNOW_DB_PATH). Use --run to show one run's per-file detail.

Examples:
  winnow history --corpus ./content
  winnow history --corpus ./content --limit 5
  winnow history --run 4f7c... --corpus ./content
  winnow history --corpus ./content --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		l, err := ledger.Open(ledger.DBPath(historyCorpus))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Close()

		if historyRunID != "" {
			showRunDetail(ctx, l)
			return
		}

		runs, err := l.ListRuns(ctx, historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if historyJSON {
			printJSON(runs)
			return
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range runs {
			marker := green("✓")
			if !r.Success {
				marker = red("✗")
			}
			suffix := ""
			if r.DryRun {
				suffix = gray(" (dry-run)")
			}
			fmt.Printf("%s %s  %s  %d record(s), %d removed, ratio %.3f%s\n",
				marker, r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.ID, r.TotalRecords, r.RecordsRemoved, r.UniquenessRatio, suffix)
		}
	},
}

func showRunDetail(ctx context.Context, l *ledger.Ledger) {
	files, err := l.RunFiles(ctx, historyRunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if historyJSON {
		printJSON(files)
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	fmt.Printf("Run %s:\n", historyRunID)
	for _, f := range files {
		if f.ErrorKind != "" {
			fmt.Printf("  %s %s: %s\n", red("✗"), f.File, f.ErrorKind)
			continue
		}
		fmt.Printf("  %s %s: %d record(s), %d removed\n", green("✓"), f.File, f.Records, f.Removals)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding output: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "show per-file detail for one run ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print machine-readable output")
	historyCmd.Flags().StringVar(&historyCorpus, "corpus", ".", "corpus path whose ledger to read")
	rootCmd.AddCommand(historyCmd)
}
