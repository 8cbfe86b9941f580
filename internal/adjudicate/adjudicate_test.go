package adjudicate

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/steveyegge/winnow/internal/similarity"
	"github.com/steveyegge/winnow/internal/types"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Verdict
		wantErr bool
	}{
		{
			name:  "plain JSON",
			input: `{"is_duplicate": true, "confidence": 0.92, "reasoning": "same insight"}`,
			want:  &Verdict{IsDuplicate: true, Confidence: 0.92, Reasoning: "same insight"},
		},
		{
			name: "fenced JSON",
			input: "```json\n" +
				`{"is_duplicate": false, "confidence": 0.7, "reasoning": "different emphasis"}` +
				"\n```",
			want: &Verdict{IsDuplicate: false, Confidence: 0.7, Reasoning: "different emphasis"},
		},
		{
			name:  "prose around the object",
			input: `Here is my verdict: {"is_duplicate": true, "confidence": 0.9} Let me know if you need more.`,
			want:  &Verdict{IsDuplicate: true, Confidence: 0.9},
		},
		{
			name:    "empty response",
			input:   "   \n ",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "I cannot determine this.",
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			input:   `{"is_duplicate": true, "confidence": 1.4}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			input:   `{"is_duplicate": true, "confidence": }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("ParseVerdict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func borderlinePair() similarity.Pair {
	return similarity.Pair{
		A:     &types.Record{Text: "Growth requires patience."},
		B:     &types.Record{Text: "Growth demands patience and care."},
		Score: 0.824,
	}
}

// An exhausted call cap leaves pairs unjudged and unmerged; no API call is
// ever attempted.
func TestJudge_CallCapLeavesPairsUnmerged(t *testing.T) {
	a := &Adjudicator{
		limiter:   rate.NewLimiter(rate.Inf, 1),
		maxPairs:  0,
		threshold: 0.85,
	}
	confirmed, usage := a.Judge(context.Background(), []similarity.Pair{borderlinePair()})
	if len(confirmed) != 0 {
		t.Errorf("expected no confirmations, got %d", len(confirmed))
	}
	if usage.Calls != 0 || usage.PromotedPairs != 0 {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

// Context cancellation aborts before any call; the fail-safe direction is
// always "leave unmerged".
func TestJudge_CancelledContext(t *testing.T) {
	a := &Adjudicator{
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxPairs:  10,
		threshold: 0.85,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	confirmed, usage := a.Judge(ctx, []similarity.Pair{borderlinePair(), borderlinePair()})
	if len(confirmed) != 0 {
		t.Errorf("expected no confirmations, got %d", len(confirmed))
	}
	if usage.PromotedPairs != 0 {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

func TestBuildPrompt(t *testing.T) {
	pair := similarity.Pair{
		A:     &types.Record{Text: "Growth requires patience."},
		B:     &types.Record{Text: "Growth demands patience and care."},
		Score: 0.824,
	}
	prompt := buildPrompt(pair)

	for _, want := range []string{
		"Growth requires patience.",
		"Growth demands patience and care.",
		"0.824",
		"is_duplicate",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
