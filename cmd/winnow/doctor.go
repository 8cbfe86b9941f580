package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/extract"
)

var doctorRecursive bool

var doctorCmd = &cobra.Command{
	Use:   "doctor <corpus>",
	Short: "Check corpus health without modifying anything",
	Long: `Run read-only health checks over a corpus.

Every candidate file is parsed and scanned for records. Nothing is
written; this is safe to run against a live corpus at any time.

Exit codes:
  0 - Every file parsed and at least one record was found
  1 - Some files are malformed or hold no records
  2 - No file could be processed at all`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		cfg := config.DefaultConfig()

		fmt.Printf("%s Discovering corpus files\n", cyan("→"))
		files, err := corpus.Discover(args[0], doctorRecursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", red("✗"), err)
			os.Exit(2)
		}
		fmt.Printf("  %s %d candidate file(s)\n", green("✓"), len(files))

		fmt.Printf("%s Parsing and scanning\n", cyan("→"))
		extractor := extract.New(cfg)
		totalRecords := 0
		warnings := 0
		parsed := 0
		for _, file := range files {
			doc, err := corpus.Load(file, cfg.TierPatterns)
			if err != nil {
				warnings++
				fmt.Printf("  %s %s: %v\n", red("✗"), file, err)
				continue
			}
			parsed++
			records := extractor.Extract(doc, 0)
			totalRecords += len(records)
			if len(records) == 0 {
				warnings++
				fmt.Printf("  %s %s: parses but holds no records (%s tier)\n", yellow("⚠"), file, doc.Tier)
				continue
			}
			fmt.Printf("  %s %s: %d record(s), %s tier\n", green("✓"), file, len(records), doc.Tier)
		}

		fmt.Println()
		switch {
		case parsed == 0:
			fmt.Printf("%s No file could be processed\n", red("✗"))
			os.Exit(2)
		case warnings > 0:
			fmt.Printf("%s %d record(s) across %d file(s), %d warning(s)\n",
				yellow("⚠"), totalRecords, parsed, warnings)
			os.Exit(1)
		default:
			fmt.Printf("%s %d record(s) across %d file(s)\n", green("✓"), totalRecords, parsed)
		}
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorRecursive, "recursive", false, "descend into corpus subdirectories")
	rootCmd.AddCommand(doctorCmd)
}
