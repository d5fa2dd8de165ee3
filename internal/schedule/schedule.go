// Package schedule parses and evaluates the JSON schedule format stored with
// recurring relay goals. Three kinds are supported: cron expressions,
// fixed intervals, and one-shot timestamps.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

type Spec struct {
	Kind       string `json:"kind"`        // "cron", "interval", "once"
	CronExpr   string `json:"cron_expr"`   // cron expression when kind=cron
	IntervalMs int64  `json:"interval_ms"` // interval in ms when kind=interval
	AtMs       int64  `json:"at_ms"`       // unix ms timestamp when kind=once
}

func Parse(raw string) (*Spec, error) {
	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// NextRun evaluates when the schedule fires next. A nil result means never
// again: one-shots in the past have no next run, as do unparseable specs.
func NextRun(raw string) *time.Time {
	s, err := Parse(raw)
	if err != nil {
		return nil
	}

	now := time.Now()
	var next time.Time

	switch s.Kind {
	case "cron":
		tick, err := gronx.NextTick(s.CronExpr, false)
		if err != nil {
			return nil
		}
		next = tick
	case "interval":
		next = now.Add(time.Duration(s.IntervalMs) * time.Millisecond)
	case "once":
		t := time.UnixMilli(s.AtMs)
		if !t.After(now) {
			return nil
		}
		next = t
	default:
		return nil
	}

	return &next
}

// Describe renders a schedule for status lines and the console list.
func Describe(raw string) string {
	s, err := Parse(raw)
	if err != nil {
		return raw
	}

	switch s.Kind {
	case "cron":
		return s.CronExpr
	case "interval":
		d := time.Duration(s.IntervalMs) * time.Millisecond
		switch {
		case d >= time.Hour && d%time.Hour == 0:
			if h := int(d.Hours()); h == 1 {
				return "Every hour"
			} else {
				return fmt.Sprintf("Every %d hours", h)
			}
		case d%time.Minute == 0:
			if m := int(d.Minutes()); m == 1 {
				return "Every minute"
			} else {
				return fmt.Sprintf("Every %d minutes", m)
			}
		default:
			return fmt.Sprintf("Every %d seconds", int(d.Seconds()))
		}
	case "once":
		return "Once at " + time.UnixMilli(s.AtMs).Format("Jan 2 15:04")
	default:
		return raw
	}
}

// Normalize accepts either the JSON spec or a bare cron expression and
// returns the canonical JSON form, validating as it goes.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s.Kind != "" {
		switch s.Kind {
		case "cron":
			if !gronx.New().IsValid(s.CronExpr) {
				return "", fmt.Errorf("invalid cron expression: %s", s.CronExpr)
			}
		case "interval":
			if s.IntervalMs <= 0 {
				return "", fmt.Errorf("interval_ms must be positive")
			}
		case "once":
			if s.AtMs <= 0 {
				return "", fmt.Errorf("at_ms must be positive")
			}
		default:
			return "", fmt.Errorf("unknown schedule kind: %s", s.Kind)
		}
		return raw, nil
	}

	if !gronx.New().IsValid(raw) {
		return "", fmt.Errorf("invalid schedule: not valid JSON or cron expression: %s", raw)
	}

	data, err := json.Marshal(Spec{Kind: "cron", CronExpr: raw})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
