// Package intent maps a free-text prompt to a coarse behavior class via
// keyword heuristics. The heuristic sits behind the Classifier interface so it
// can later be swapped for structured model output without touching callers.
package intent

import (
	"regexp"
	"strings"
)

type Intent string

const (
	Logo    Intent = "logo"
	Image   Intent = "image"
	Coder   Intent = "coder"
	General Intent = "general"
)

type Classifier interface {
	Classify(prompt string) Intent
}

// Func adapts a plain function to the Classifier interface.
type Func func(prompt string) Intent

func (f Func) Classify(prompt string) Intent { return f(prompt) }

var (
	logoHints  = regexp.MustCompile(`\b(logo|logomark|wordmark|brand mark|app icon|favicon)\b`)
	imageHints = regexp.MustCompile(`image|illustration|banner|icon|hero|mockup|wallpaper|photo|background|thumbnail`)
	codeHints  = regexp.MustCompile(`build|implement|create|make|scaffold|component|react|html|css|api|endpoint|function|class|hook|typescript|tailwind|vite|node|express|next\.js|ui|layout|form|table|chart`)
)

// Classify is total and stable: logo keywords win, then image, then code,
// else general.
func Classify(prompt string) Intent {
	p := strings.ToLower(prompt)
	if logoHints.MatchString(p) {
		return Logo
	}
	if imageHints.MatchString(p) {
		return Image
	}
	if codeHints.MatchString(p) {
		return Coder
	}
	return General
}

// Default is the keyword classifier used when no other Classifier is injected.
var Default Classifier = Func(Classify)
