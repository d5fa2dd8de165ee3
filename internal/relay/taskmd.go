package relay

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// InitTaskMD seeds the cumulative task log that every agent reads and
// appends to over the life of a run.
func InitTaskMD(goal, todo string) string {
	if todo == "" {
		todo = "-"
	}
	return fmt.Sprintf(`# Task Log

**Started:** %s

## Goal
%s

## TODO (Initial)
%s

---
`, timestamp(), goal, todo)
}

// AppendTaskMD adds one chunk to the log with a horizontal rule after it, so
// entries stay visually separated no matter what an agent writes.
func AppendTaskMD(md, chunk string) string {
	return md + "\n" + chunk + "\n---\n"
}

func mdStartEntry(agent Agent, taskHeadline string) string {
	if taskHeadline == "" {
		taskHeadline = "(derived per stage)"
	}
	return fmt.Sprintf("### %s • %s\n**Start:** %s\n**Task:** %s  \n(Read task.md before/after as required)",
		agent.ID, agent.Role, timestamp(), taskHeadline)
}

func mdFinishEntry(status, goal, overview string) string {
	if overview == "" {
		overview = "-"
	}
	return fmt.Sprintf("**Finish:** %s\n**Status:** %s\n**Goal (echo):** %s\n**Overview:** %s",
		timestamp(), status, goal, overview)
}

func composePrompt(agent Agent, context, artifact, taskMD string) string {
	plannerNote := "Read task.md before starting and after finishing."
	if agent.ID == "GEM-API-1" {
		plannerNote = "IMPORTANT: Divide the GOAL into EXACTLY 10 tasks with titles, objectives, acceptance, and risks. No placeholders."
	}
	if taskMD == "" {
		taskMD = "(empty)"
	}
	return fmt.Sprintf(`You are %s acting as %s.
Expertise: %s
%s

Shared context for this multi-agent chain:
%s

task.md (cumulative log):
%s

Latest artifact (may include files in fenced blocks):
%s

Your task: %s
Return complete, unambiguous output. Avoid placeholders.`,
		agent.ID, agent.Role, agent.Expertise, plannerNote, context, taskMD, artifact, agent.System)
}

// Capture runs to the first line end: the brief is the rest of the line, not
// the whole remainder of the prompt.
var headlinePattern = regexp.MustCompile(`Your task:\s*(.+)`)

// extractTaskHeadline pulls the agent's brief out of a composed prompt for
// the log's start entry, capped so a long system string does not flood it.
func extractTaskHeadline(prompt string) string {
	m := headlinePattern.FindStringSubmatch(prompt)
	if m == nil {
		return "(agent stage)"
	}
	headline := truncateRunes(strings.TrimSpace(m[1]), 140)
	if headline == "" {
		return "(agent stage)"
	}
	return headline
}

// truncateRunes caps s at max bytes without splitting a multi-byte rune,
// backing off to the nearest rune boundary.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// summary caps an output for the shared context so ten stages of accumulation
// stay within a reasonable prompt size.
func summary(s string) string {
	const max = 1000
	if len(s) > max {
		return truncateRunes(s, max) + "..."
	}
	return s
}

var (
	fencedBlocks = regexp.MustCompile("(?s)```.*?```")
	whitespace   = regexp.MustCompile(`\s+`)
)

// summarizeForMD strips code fences and collapses whitespace so the task log
// holds prose overviews, not file dumps.
func summarizeForMD(out string) string {
	plain := fencedBlocks.ReplaceAllString(out, "")
	plain = strings.TrimSpace(whitespace.ReplaceAllString(plain, " "))
	return truncateRunes(plain, 600)
}
