package classifier

import (
	"fmt"
	"regexp"
	"sort"
)

// signalFile is the on-disk shape of the embedded pattern catalog.
type signalFile struct {
	SchemaVersion int `toml:"schema_version"`

	Involvement involvementPolicy `toml:"involvement"`
	States      []stateSignal     `toml:"states"`
}

// involvementPolicy holds the base score plus the signals that move it.
type involvementPolicy struct {
	Base    float64 `toml:"base"`
	Floor   float64 `toml:"floor"`
	Ceiling float64 `toml:"ceiling"`

	Raise []involvementSignal `toml:"raise"`
	Lower []involvementSignal `toml:"lower"`
}

// involvementSignal is one weighted regex that raises or lowers the
// AI-involvement estimate.
type involvementSignal struct {
	ID     string  `toml:"id"`
	Weight float64 `toml:"weight"`
	Regex  string  `toml:"regex"`

	compiled *regexp.Regexp
}

// stateSignal maps a set of regexes onto a cognitive state and default
// intent. Higher priority wins; the first matching state is taken.
type stateSignal struct {
	Name     string   `toml:"name"`
	Intent   string   `toml:"intent"`
	Priority int      `toml:"priority"`
	Patterns []string `toml:"patterns"`

	compiled []*regexp.Regexp
}

func (f *signalFile) compile() error {
	for i := range f.Involvement.Raise {
		if err := f.Involvement.Raise[i].compile(); err != nil {
			return err
		}
	}
	for i := range f.Involvement.Lower {
		if err := f.Involvement.Lower[i].compile(); err != nil {
			return err
		}
	}
	for i := range f.States {
		st := &f.States[i]
		for _, p := range st.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("failed to compile pattern %q for state %s: %w", p, st.Name, err)
			}
			st.compiled = append(st.compiled, re)
		}
	}
	return nil
}

func (s *involvementSignal) compile() error {
	re, err := regexp.Compile(s.Regex)
	if err != nil {
		return fmt.Errorf("failed to compile signal %s: %w", s.ID, err)
	}
	s.compiled = re
	return nil
}

// sortByPriority orders states highest priority first. The sort is stable
// so equal priorities keep file order, which keeps classification
// deterministic.
func (f *signalFile) sortByPriority() {
	sort.SliceStable(f.States, func(i, j int) bool {
		return f.States[i].Priority > f.States[j].Priority
	})
}
