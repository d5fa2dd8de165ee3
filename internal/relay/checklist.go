package relay

import (
	"regexp"

	"github.com/emilalvaro25/vibe/internal/store"
)

// Rubric grades one agent output into a checklist. The orchestrator persists
// the result with the step, so implementations must be total: no errors, no
// panics.
type Rubric interface {
	Grade(output string) []store.CheckItem
}

// RubricFunc adapts a plain function to the Rubric interface.
type RubricFunc func(output string) []store.CheckItem

func (f RubricFunc) Grade(output string) []store.CheckItem { return f(output) }

var checklistItems = []string{
	"Spec satisfied",
	"No TODOs left in code",
	"Build succeeds",
	"UI responsive",
	"a11y basics (labels, contrast)",
	"No insecure code (eval/inline JS)",
}

var placeholderHints = regexp.MustCompile(`(?i)TODO|TBD|PLACEHOLDER`)

// Grade applies the placeholder heuristic uniformly: every item passes unless
// the output still contains unfinished markers.
func Grade(output string) []store.CheckItem {
	pass := !placeholderHints.MatchString(output)
	items := make([]store.CheckItem, len(checklistItems))
	for i, name := range checklistItems {
		items[i] = store.CheckItem{Name: name, Pass: pass}
	}
	return items
}

// DefaultRubric is the heuristic grader used when no other Rubric is injected.
var DefaultRubric Rubric = RubricFunc(Grade)
