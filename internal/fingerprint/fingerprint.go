// Package fingerprint normalizes record text and computes the exact-match
// fingerprint used for duplicate detection. Normalization is a total
// function over any string; there are no error conditions.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctFolder maps typographic punctuation to ASCII equivalents so curly
// and straight variants of the same text collide.
var punctFolder = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"‚", "'", // low single quote
	"‛", "'", // reversed single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"„", `"`, // low double quote
	"‟", `"`, // reversed double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"…", "...", // ellipsis
)

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// rule is one normalization step. Rules run in order; keeping them as a
// declarative list makes each step independently testable.
type rule struct {
	name  string
	apply func(string) string
}

var rules = []rule{
	{"unicode_nfc", norm.NFC.String},
	{"fold_punctuation", punctFolder.Replace},
	{"trim", strings.TrimSpace},
	{"collapse_whitespace", collapseWhitespace},
	{"lowercase", strings.ToLower},
}

// Normalize produces the comparable form of record text: NFC-folded,
// punctuation-folded to ASCII, trimmed, inner whitespace collapsed to
// single spaces, lower-cased. The result feeds both the fingerprint and
// the fuzzy comparator, so it is computed once per record.
func Normalize(s string) string {
	for _, r := range rules {
		s = r.apply(s)
	}
	return s
}

// Hash computes the exact-match fingerprint of already-normalized text.
// Records with equal fingerprints are exact duplicates regardless of
// group or file.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
