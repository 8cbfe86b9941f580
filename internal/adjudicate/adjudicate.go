// Package adjudicate runs the optional Claude pass over borderline
// near-duplicate pairs: pairs scoring just under the similarity threshold
// get a semantic verdict, and confirmed pairs are promoted into the near
// pass. Adjudication is fail-safe in one direction only — any API or parse
// failure leaves the pair unmerged, so it can never remove content on its
// own authority.
package adjudicate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/steveyegge/winnow/internal/config"
	"github.com/steveyegge/winnow/internal/similarity"
)

// requestsPerSecond bounds the API call rate for a run
const requestsPerSecond = 2

// Verdict is the model's duplicate determination for one pair
type Verdict struct {
	// IsDuplicate is true when the two texts are semantically redundant
	IsDuplicate bool `json:"is_duplicate"`
	// Confidence is the model's confidence score (0.0-1.0)
	Confidence float64 `json:"confidence"`
	// Reasoning explains the determination
	Reasoning string `json:"reasoning,omitempty"`
}

// Usage tracks one run's adjudication activity for the report
type Usage struct {
	Calls         int
	PromotedPairs int
	InputTokens   int64
	OutputTokens  int64
}

// Adjudicator judges borderline pairs via the Anthropic API
type Adjudicator struct {
	client    *anthropic.Client
	model     string
	limiter   *rate.Limiter
	maxPairs  int
	threshold float64
}

// New builds an Adjudicator from the engine configuration. Requires
// ANTHROPIC_API_KEY in the environment.
func New(cfg *config.Config) (*Adjudicator, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf(`ANTHROPIC_API_KEY environment variable is required for adjudication

To fix:
  1. Export your API key: export ANTHROPIC_API_KEY=sk-ant-...
  2. Or run without --adjudicate to skip the borderline pass`)
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Adjudicator{
		client:    &client,
		model:     cfg.AdjudicateModel,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxPairs:  cfg.AdjudicateMaxPairs,
		threshold: cfg.SimilarityThreshold,
	}, nil
}

// Judge asks for a verdict on each borderline pair, up to the per-run call
// cap, and returns the confirmed pairs. A pair is confirmed only when the
// model calls it a duplicate with confidence at or above the similarity
// threshold. Per-pair failures are logged and skipped.
func (a *Adjudicator) Judge(ctx context.Context, pairs []similarity.Pair) ([]similarity.Pair, Usage) {
	var confirmed []similarity.Pair
	var usage Usage

	for _, pair := range pairs {
		if usage.Calls >= a.maxPairs {
			log.Printf("[ADJUDICATE] call cap reached (%d); %d pair(s) left unjudged",
				a.maxPairs, len(pairs)-usage.Calls)
			break
		}
		if err := a.limiter.Wait(ctx); err != nil {
			log.Printf("[ADJUDICATE] aborting: %v", err)
			break
		}

		verdict, in, out, err := a.judgePair(ctx, pair)
		usage.Calls++
		usage.InputTokens += in
		usage.OutputTokens += out
		if err != nil {
			log.Printf("[ADJUDICATE] pair left unmerged (score %.3f): %v", pair.Score, err)
			continue
		}
		if verdict.IsDuplicate && verdict.Confidence >= a.threshold {
			confirmed = append(confirmed, pair)
			log.Printf("[ADJUDICATE] pair promoted (score %.3f, confidence %.2f): %s",
				pair.Score, verdict.Confidence, verdict.Reasoning)
		}
	}

	usage.PromotedPairs = len(confirmed)
	return confirmed, usage
}

func (a *Adjudicator) judgePair(ctx context.Context, pair similarity.Pair) (*Verdict, int64, int64, error) {
	prompt := buildPrompt(pair)

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	verdict, err := ParseVerdict(responseText)
	if err != nil {
		return nil, resp.Usage.InputTokens, resp.Usage.OutputTokens, err
	}
	return verdict, resp.Usage.InputTokens, resp.Usage.OutputTokens, nil
}

func buildPrompt(pair similarity.Pair) string {
	return fmt.Sprintf(`You are reviewing a text corpus for redundant content.

Two short records scored %.3f on textual similarity, just under the duplicate threshold. Decide whether they are semantically redundant: would a reader consider them the same insight, such that keeping both adds nothing?

Record A:
%s

Record B:
%s

Respond with ONLY a JSON object:
{"is_duplicate": true/false, "confidence": 0.0-1.0, "reasoning": "one sentence"}`,
		pair.Score, pair.A.Text, pair.B.Text)
}

// ParseVerdict extracts a Verdict from a model response, tolerating code
// fences and surrounding prose.
func ParseVerdict(text string) (*Verdict, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Strip a code fence if the whole response is wrapped in one.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if i := strings.LastIndex(trimmed, "```"); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	// Tolerate prose around the object.
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response: %q", truncate(text, 120))
	}

	var v Verdict
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("parsing verdict: %w", err)
	}
	if v.Confidence < 0.0 || v.Confidence > 1.0 {
		return nil, fmt.Errorf("invalid confidence score: %.2f (must be 0.0-1.0)", v.Confidence)
	}
	return &v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
