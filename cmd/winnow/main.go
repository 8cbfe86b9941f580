// Command winnow deduplicates a corpus of short text records held in JSON
// documents: exact duplicates by fingerprint, near duplicates by fuzzy
// similarity, conflicts resolved by provenance tier.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "winnow",
	Short: "Corpus deduplication engine",
	Long: `winnow removes redundant records from a corpus of JSON documents.

Records are discovered anywhere in each document tree, fingerprinted for
exact matching, and compared fuzzily for near-duplicates. When duplicates
conflict, the record from the most authoritative provenance tier wins:
hand-authored content is never deleted in favor of generated variants.

Files are only rewritten when they lose at least one record; everything
unrelated is preserved byte for byte.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
