package schedule

import (
	"fmt"
	"testing"
	"time"
)

func TestParseCron(t *testing.T) {
	s, err := Parse(`{"kind":"cron","cron_expr":"0 9 * * *"}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if s.Kind != "cron" || s.CronExpr != "0 9 * * *" {
		t.Errorf("unexpected spec: %+v", s)
	}
}

func TestNextRunCron(t *testing.T) {
	next := NextRun(`{"kind":"cron","cron_expr":"* * * * *"}`)
	if next == nil {
		t.Fatal("expected next run time, got nil")
	}
	if next.Before(time.Now()) {
		t.Error("expected next run in the future")
	}
}

func TestNextRunInterval(t *testing.T) {
	next := NextRun(`{"kind":"interval","interval_ms":60000}`)
	if next == nil {
		t.Fatal("expected next run time, got nil")
	}
	diff := next.Sub(time.Now().Add(time.Minute))
	if diff > time.Second || diff < -time.Second {
		t.Errorf("expected next run ~60s from now, got diff %v", diff)
	}
}

func TestNextRunOnce(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	if next := NextRun(fmt.Sprintf(`{"kind":"once","at_ms":%d}`, future)); next == nil {
		t.Fatal("expected next run time, got nil")
	}

	past := time.Now().Add(-time.Hour).UnixMilli()
	if next := NextRun(fmt.Sprintf(`{"kind":"once","at_ms":%d}`, past)); next != nil {
		t.Error("expected nil for past once schedule")
	}
}

func TestNextRunInvalid(t *testing.T) {
	if NextRun(`invalid json`) != nil {
		t.Error("expected nil for invalid schedule")
	}
	if NextRun(`{"kind":"unknown"}`) != nil {
		t.Error("expected nil for unknown kind")
	}
}

func TestNormalizePlainCron(t *testing.T) {
	result, err := Normalize("0 9 * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := Parse(result)
	if err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if s.Kind != "cron" || s.CronExpr != "0 9 * * *" {
		t.Errorf("unexpected result: %+v", s)
	}
}

func TestNormalizePassthroughJSON(t *testing.T) {
	for _, input := range []string{
		`{"kind":"cron","cron_expr":"0 9 * * *"}`,
		`{"kind":"interval","interval_ms":300000}`,
	} {
		result, err := Normalize(input)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", input, err)
		}
		if result != input {
			t.Errorf("expected passthrough, got %q", result)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, input := range []string{
		"not a cron",
		`{"kind":"cron","cron_expr":"bad"}`,
		`{"kind":"bogus"}`,
		`{"kind":"interval","interval_ms":0}`,
		`{"kind":"once","at_ms":-5}`,
	} {
		if _, err := Normalize(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestNormalizeTrimsWhitespace(t *testing.T) {
	result, err := Normalize("  */5 * * * *  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := Parse(result)
	if err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if s.CronExpr != "*/5 * * * *" {
		t.Errorf("expected trimmed cron, got %q", s.CronExpr)
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct{ raw, want string }{
		{`{"kind":"cron","cron_expr":"0 9 * * *"}`, "0 9 * * *"},
		{`{"kind":"interval","interval_ms":3600000}`, "Every hour"},
		{`{"kind":"interval","interval_ms":7200000}`, "Every 2 hours"},
		{`{"kind":"interval","interval_ms":60000}`, "Every minute"},
		{`{"kind":"interval","interval_ms":300000}`, "Every 5 minutes"},
		{`{"kind":"interval","interval_ms":45000}`, "Every 45 seconds"},
		{`garbage`, "garbage"},
	}
	for _, c := range cases {
		if got := Describe(c.raw); got != c.want {
			t.Errorf("Describe(%s) = %q, want %q", c.raw, got, c.want)
		}
	}
}
