// Package classifier maps a raw student prompt (plus a short window of
// recent prompts) onto a cognitive state, an intent label, and an
// AI-involvement estimate in [0,1].
//
// Classification is deterministic and never fails: when no signal matches,
// the result degrades to the UNKNOWN state with the base involvement.
// The signal catalog is baked into the binary so every process classifies
// the same prompt the same way.
package classifier

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/atelieredu/traza/pkg/cognitive"
)

//go:embed signals.toml
var embeddedSignals []byte

// historyWeight is how much the recent-prompt window contributes to the
// final involvement estimate relative to the current prompt.
const historyWeight = 0.2

// Result is the classifier's label for one prompt.
type Result struct {
	State       cognitive.CognitiveState
	Intent      string
	Involvement float64
}

// Classifier scans prompts against the compiled signal catalog.
type Classifier struct {
	signals signalFile
}

// New builds a classifier from the embedded signal catalog.
func New() (*Classifier, error) {
	return fromBytes(embeddedSignals)
}

func fromBytes(raw []byte) (*Classifier, error) {
	var signals signalFile
	if err := toml.Unmarshal(raw, &signals); err != nil {
		return nil, fmt.Errorf("failed to parse signal catalog: %w", err)
	}
	if err := signals.compile(); err != nil {
		return nil, err
	}
	signals.sortByPriority()
	return &Classifier{signals: signals}, nil
}

// Classify labels prompt. history is the ordered window of recent prompts
// in the same session, oldest first; it smooths the involvement estimate
// so one atypical turn does not swing the score. intentHint, when
// non-empty, overrides the inferred intent (callers may know the intent
// from an explicit client field).
func (c *Classifier) Classify(prompt string, history []string, intentHint string) Result {
	state, intent := c.classifyState(prompt)
	if intentHint != "" {
		intent = intentHint
	}

	involvement := c.involvementOf(prompt)
	if len(history) > 0 {
		var sum float64
		for _, h := range history {
			sum += c.involvementOf(h)
		}
		mean := sum / float64(len(history))
		involvement = (1-historyWeight)*involvement + historyWeight*mean
	}

	return Result{State: state, Intent: intent, Involvement: involvement}
}

func (c *Classifier) classifyState(prompt string) (cognitive.CognitiveState, string) {
	for _, st := range c.signals.States {
		for _, re := range st.compiled {
			if re.MatchString(prompt) {
				return cognitive.CognitiveState(st.Name), st.Intent
			}
		}
	}
	return cognitive.StateUnknown, string(cognitive.StateUnknown)
}

// involvementOf scores a single prompt: base plus the weights of every
// matching raise signal, minus every matching lower signal, clamped to
// the configured floor and ceiling.
func (c *Classifier) involvementOf(prompt string) float64 {
	score := c.signals.Involvement.Base
	for _, sig := range c.signals.Involvement.Raise {
		if sig.compiled.MatchString(prompt) {
			score += sig.Weight
		}
	}
	for _, sig := range c.signals.Involvement.Lower {
		if sig.compiled.MatchString(prompt) {
			score -= sig.Weight
		}
	}
	if score < c.signals.Involvement.Floor {
		score = c.signals.Involvement.Floor
	}
	if score > c.signals.Involvement.Ceiling {
		score = c.signals.Involvement.Ceiling
	}
	return score
}
