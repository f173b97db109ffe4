// Package governance implements the total-delegation gate: a binary
// block/allow decision over a student prompt, independent of agent mode.
//
// The gate never errors and never blocks on uncertainty. Its ruleset is
// embedded in the binary; an optional override file can be hot-reloaded at
// runtime so teachers can tune patterns without redeploying.
package governance

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/atelieredu/traza/pkg/cognitive"
)

//go:embed patterns.toml
var embeddedPatterns []byte

// Decision is the gate's verdict for one prompt. Reason is empty unless
// Blocked is true.
type Decision struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`

	// RuleID names the block rule that fired, for audit.
	RuleID string `json:"rule_id,omitempty"`
}

type patternFile struct {
	SchemaVersion int          `toml:"schema_version"`
	Block         []blockRule  `toml:"block"`
	Exempt        []exemptRule `toml:"exempt"`
}

type blockRule struct {
	ID     string `toml:"id"`
	Regex  string `toml:"regex"`
	Reason string `toml:"reason"`

	compiled *regexp.Regexp
}

type exemptRule struct {
	ID    string `toml:"id"`
	Regex string `toml:"regex"`

	compiled *regexp.Regexp
}

func (f *patternFile) compile() error {
	for i := range f.Block {
		re, err := regexp.Compile(f.Block[i].Regex)
		if err != nil {
			return fmt.Errorf("failed to compile block rule %s: %w", f.Block[i].ID, err)
		}
		f.Block[i].compiled = re
	}
	for i := range f.Exempt {
		re, err := regexp.Compile(f.Exempt[i].Regex)
		if err != nil {
			return fmt.Errorf("failed to compile exempt rule %s: %w", f.Exempt[i].ID, err)
		}
		f.Exempt[i].compiled = re
	}
	return nil
}

// Gate evaluates prompts against the current ruleset. Safe for concurrent
// use; Reload swaps the ruleset atomically under the lock.
type Gate struct {
	mu    sync.RWMutex
	rules patternFile
}

// New builds a gate from the embedded ruleset.
func New() (*Gate, error) {
	var rules patternFile
	if err := toml.Unmarshal(embeddedPatterns, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse embedded governance patterns: %w", err)
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return &Gate{rules: rules}, nil
}

// Evaluate decides whether prompt is a total-delegation request. The
// decision is the same for every agent mode; mode and intent are accepted
// for audit logging by callers, not consulted for the verdict. A prompt
// showing the student's own reasoning (exempt rules) is never blocked.
func (g *Gate) Evaluate(prompt string, cognitiveIntent string, mode cognitive.AgentMode) Decision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, ex := range g.rules.Exempt {
		if ex.compiled.MatchString(prompt) {
			return Decision{}
		}
	}
	for _, rule := range g.rules.Block {
		if rule.compiled.MatchString(prompt) {
			return Decision{Blocked: true, Reason: rule.Reason, RuleID: rule.ID}
		}
	}
	return Decision{}
}

// Reload replaces the ruleset with the contents of raw. The old ruleset
// stays in effect when raw does not parse.
func (g *Gate) Reload(raw []byte) error {
	var rules patternFile
	if err := toml.Unmarshal(raw, &rules); err != nil {
		return fmt.Errorf("failed to parse governance patterns: %w", err)
	}
	if err := rules.compile(); err != nil {
		return err
	}

	g.mu.Lock()
	g.rules = rules
	g.mu.Unlock()
	return nil
}

// RuleCount reports how many block rules are active, for admin surfaces.
func (g *Gate) RuleCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules.Block)
}
