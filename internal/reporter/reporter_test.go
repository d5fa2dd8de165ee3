package reporter

import (
	"sync"
	"testing"
	"time"

	"github.com/emilalvaro25/vibe/internal/statusbus"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordingSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func collectStatuses(bus *statusbus.Bus) (func() []statusbus.Status, func()) {
	var mu sync.Mutex
	var got []statusbus.Status
	dispose := bus.Subscribe(statusbus.EventStatus, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload.(statusbus.Status))
	})
	return func() []statusbus.Status {
		mu.Lock()
		defer mu.Unlock()
		return append([]statusbus.Status(nil), got...)
	}, dispose
}

func TestStartAndEndSuccess(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	speaker := &recordingSpeaker{}
	r := New(bus, speaker, time.Hour)

	r.StartGeneration("run-1")
	r.EndGeneration("run-1", true)

	got := statuses()
	if len(got) != 2 {
		t.Fatalf("expected 2 statuses, got %d: %+v", len(got), got)
	}
	if got[0].Level != statusbus.LevelInfo || got[0].Text != "Generating…" {
		t.Errorf("unexpected start status: %+v", got[0])
	}
	if got[1].Level != statusbus.LevelSuccess || got[1].Text != "Generation complete." {
		t.Errorf("unexpected end status: %+v", got[1])
	}
	if len(speaker.spoken()) != 0 {
		t.Errorf("success should not speak: %v", speaker.spoken())
	}
}

func TestEndFailureSpeaks(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	speaker := &recordingSpeaker{}
	r := New(bus, speaker, time.Hour)

	r.StartGeneration("run-1")
	r.EndGeneration("run-1", false)

	got := statuses()
	if got[len(got)-1].Level != statusbus.LevelError {
		t.Errorf("expected error status, got %+v", got)
	}
	spoken := speaker.spoken()
	if len(spoken) != 1 || spoken[0] != "There was an error generating. Please review the output." {
		t.Errorf("unexpected spoken lines: %v", spoken)
	}
}

func TestIdleWatchdogFires(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	speaker := &recordingSpeaker{}
	r := New(bus, speaker, 20*time.Millisecond)

	r.StartGeneration("run-1")
	time.Sleep(100 * time.Millisecond)

	var warned bool
	for _, s := range statuses() {
		if s.Level == statusbus.LevelWarn {
			warned = true
		}
	}
	if !warned {
		t.Error("idle warning not emitted")
	}
	if len(speaker.spoken()) != 1 {
		t.Errorf("idle warning not spoken: %v", speaker.spoken())
	}
}

func TestWatchdogClearedOnCompletion(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	r := New(bus, nil, 20*time.Millisecond)

	r.StartGeneration("run-1")
	r.EndGeneration("run-1", true)
	time.Sleep(100 * time.Millisecond)

	for _, s := range statuses() {
		if s.Level == statusbus.LevelWarn {
			t.Errorf("watchdog fired after completion: %+v", s)
		}
	}
}

func TestWatchdogsArePerRun(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	r := New(bus, nil, 20*time.Millisecond)

	// A second run starting must not clear the first run's timer.
	r.StartGeneration("run-1")
	r.StartGeneration("run-2")
	r.EndGeneration("run-2", true)
	time.Sleep(100 * time.Millisecond)

	var warnings int
	for _, s := range statuses() {
		if s.Level == statusbus.LevelWarn {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("expected exactly one idle warning for run-1, got %d", warnings)
	}
}

func TestNeedUserAction(t *testing.T) {
	bus := statusbus.New()
	statuses, _ := collectStatuses(bus)
	speaker := &recordingSpeaker{}
	r := New(bus, speaker, time.Hour)

	r.NeedUserAction("")

	got := statuses()
	if len(got) != 1 || got[0].Text != "Action needed. Please confirm." {
		t.Errorf("unexpected statuses: %+v", got)
	}
	if len(speaker.spoken()) != 1 {
		t.Error("action notice not spoken")
	}
}
