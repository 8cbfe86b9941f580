// Package review walks the planned removals interactively before anything
// is committed. Vetoing a cluster keeps all its records; the engine only
// mutates what the operator accepted.
package review

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/winnow/internal/types"
)

// PromptFunc reads one line of operator input. Tests inject a scripted
// implementation; production sessions read from readline.
type PromptFunc func(prompt string) (string, error)

// Outcome is the result of one review session
type Outcome struct {
	// Accepted are the resolutions the operator approved
	Accepted []*types.Resolution
	// Vetoed is the number of clusters dropped from the removal set
	Vetoed int
}

// Session drives the pre-commit review loop
type Session struct {
	prompt PromptFunc
	out    io.Writer
	rl     *readline.Instance
}

// New opens an interactive session on the terminal
func New(out io.Writer) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "", // prompts are passed per-read
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := &Session{out: out, rl: rl}
	s.prompt = func(p string) (string, error) {
		rl.SetPrompt(p)
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			return "q", nil
		}
		return line, err
	}
	return s, nil
}

// NewWithPrompt builds a session over a scripted prompt, for tests
func NewWithPrompt(out io.Writer, prompt PromptFunc) *Session {
	return &Session{out: out, prompt: prompt}
}

// Close releases the terminal
func (s *Session) Close() {
	if s.rl != nil {
		s.rl.Close()
	}
}

// Review walks each planned cluster and collects the operator's decisions.
// Accepted resolutions keep their original order so mutation stays
// deterministic.
func (s *Session) Review(resolutions []*types.Resolution) (*Outcome, error) {
	outcome := &Outcome{}
	if len(resolutions) == 0 {
		return outcome, nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(s.out, "\n%s %d duplicate cluster(s) planned for removal\n",
		cyan("→"), len(resolutions))

	acceptRest := false
	vetoRest := false
	for i, res := range resolutions {
		if acceptRest {
			outcome.Accepted = append(outcome.Accepted, res)
			continue
		}
		if vetoRest {
			outcome.Vetoed++
			continue
		}

		s.display(i+1, len(resolutions), res)
		for decided := false; !decided; {
			answer, err := s.prompt(fmt.Sprintf("Remove %d duplicate(s)? [y/n/a/q/?]: ", len(res.Remove)))
			if err != nil {
				return nil, fmt.Errorf("reading review decision: %w", err)
			}
			decided = true
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "y", "yes", "":
				outcome.Accepted = append(outcome.Accepted, res)
			case "n", "no", "s", "skip":
				outcome.Vetoed++
			case "a", "all":
				outcome.Accepted = append(outcome.Accepted, res)
				acceptRest = true
			case "q", "quit":
				outcome.Vetoed++
				vetoRest = true
			default:
				s.help()
				decided = false
			}
		}
	}

	return outcome, nil
}

func (s *Session) display(n, total int, res *types.Resolution) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	kind := "duplicate"
	if res.Cluster != nil {
		kind = string(res.Cluster.Kind) + " duplicate"
	}
	fmt.Fprintf(s.out, "\n[%d/%d] %s cluster\n", n, total, kind)
	fmt.Fprintf(s.out, "  %s keep   %s %s\n    %q\n",
		green("✓"), res.Keep.SourceFile, gray(fmt.Sprintf("(%s, %s)", res.Keep.Tier, res.Keep.Locator.String())),
		res.Keep.Text)
	for _, rec := range res.Remove {
		fmt.Fprintf(s.out, "  %s remove %s %s\n    %q\n",
			red("✗"), rec.SourceFile, gray(fmt.Sprintf("(%s, %s)", rec.Tier, rec.Locator.String())),
			rec.Text)
	}
}

func (s *Session) help() {
	fmt.Fprintln(s.out, `  y - accept this cluster's removals (default)
  n - veto this cluster; keep all its records
  a - accept this and all remaining clusters
  q - veto this and all remaining clusters
  ? - show this help`)
}
