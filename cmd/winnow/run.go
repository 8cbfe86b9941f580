package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/winnow/internal/adjudicate"
	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/engine"
	"github.com/steveyegge/winnow/internal/review"
)

var (
	runDryRun     bool
	runReview     bool
	runAdjudicate bool
	runJSON       bool
	runRecursive  bool
	runThreshold  float64
	runScope      string
	runConfigPath string
	runReportDir  string
)

var runCmd = &cobra.Command{
	Use:   "run <corpus>",
	Short: "Run one deduplication pass over a corpus",
	Long: `Run a single batch deduplication pass over a corpus.

The corpus is a JSON file or a directory of *.json documents. All removal
decisions are computed before any file is written; interrupting the run
before the persist step modifies nothing.

Examples:
  winnow run ./content                    # deduplicate a directory
  winnow run ./content --dry-run          # preview without writing
  winnow run ./content --review           # approve each cluster first
  winnow run ./content --threshold=0.9    # stricter near matching
  winnow run ./content --adjudicate       # Claude pass on borderline pairs
  winnow run ./content --json             # machine-readable report on stdout`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Flags override file and environment.
		if cmd.Flags().Changed("threshold") {
			cfg.SimilarityThreshold = runThreshold
		}
		if cmd.Flags().Changed("scope") {
			cfg.GroupScope = config.GroupScope(runScope)
		}
		if runAdjudicate {
			cfg.Adjudicate = true
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
			os.Exit(1)
		}

		eng := engine.New(cfg, engine.Options{
			DryRun:    runDryRun,
			Recursive: runRecursive,
			ReportDir: runReportDir,
		})

		if cfg.Adjudicate {
			adj, err := adjudicate.New(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			eng.SetAdjudicator(adj)
		}

		if runReview {
			session, err := review.New(os.Stdout)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer session.Close()
			eng.SetReviewer(session)
		}

		rep, runErr := eng.Run(context.Background(), args[0])
		if rep != nil {
			if runJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					fmt.Fprintf(os.Stderr, "Error: encoding report: %v\n", err)
					os.Exit(1)
				}
			} else {
				rep.Render(os.Stdout)
			}
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "compute and report removals without writing any file")
	runCmd.Flags().BoolVar(&runReview, "review", false, "interactively approve each cluster before removal")
	runCmd.Flags().BoolVar(&runAdjudicate, "adjudicate", false, "ask Claude about borderline near-duplicate pairs")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON instead of the human summary")
	runCmd.Flags().BoolVar(&runRecursive, "recursive", false, "descend into corpus subdirectories")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0.85, "near-duplicate similarity threshold (0.0-1.0)")
	runCmd.Flags().StringVar(&runScope, "scope", "", "candidate scoping: by_group_key, global, or capped")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a YAML configuration file")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "directory for report artifacts (default <corpus>/.winnow)")
	rootCmd.AddCommand(runCmd)
}
