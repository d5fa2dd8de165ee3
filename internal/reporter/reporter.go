// Package reporter surfaces relay progress as coarse status events and owns
// the idle watchdog. Watchdog timers are keyed per run, so concurrent runs
// never clear each other's pending warnings.
package reporter

import (
	"sync"
	"time"

	"github.com/emilalvaro25/vibe/internal/statusbus"
)

// Speaker voices a status notice out of band. Implementations must not block.
type Speaker interface {
	Speak(text string)
}

type Reporter struct {
	bus       *statusbus.Bus
	speaker   Speaker
	idleDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(bus *statusbus.Bus, speaker Speaker, idleDelay time.Duration) *Reporter {
	if idleDelay == 0 {
		idleDelay = 12 * time.Second
	}
	return &Reporter{
		bus:       bus,
		speaker:   speaker,
		idleDelay: idleDelay,
		timers:    make(map[string]*time.Timer),
	}
}

func (r *Reporter) emit(level statusbus.Level, text string) {
	r.bus.Emit(statusbus.EventStatus, statusbus.Status{Level: level, Text: text})
}

func (r *Reporter) speak(text string) {
	if r.speaker != nil {
		r.speaker.Speak(text)
	}
}

// StartGeneration announces a run and arms its idle watchdog: if the run has
// not finished after the idle delay, a single warning is emitted and spoken.
func (r *Reporter) StartGeneration(runID string) {
	r.emit(statusbus.LevelInfo, "Generating…")

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[runID]; ok {
		t.Stop()
	}
	r.timers[runID] = time.AfterFunc(r.idleDelay, func() {
		const text = "Still working. Want to adjust or continue?"
		r.emit(statusbus.LevelWarn, text)
		r.speak(text)
	})
}

// EndGeneration announces the outcome and clears the run's watchdog.
func (r *Reporter) EndGeneration(runID string, success bool) {
	r.mu.Lock()
	if t, ok := r.timers[runID]; ok {
		t.Stop()
		delete(r.timers, runID)
	}
	r.mu.Unlock()

	if success {
		r.emit(statusbus.LevelSuccess, "Generation complete.")
		return
	}
	r.emit(statusbus.LevelError, "Generation failed.")
	r.speak("There was an error generating. Please review the output.")
}

// NeedUserAction raises a warning that requires a human decision.
func (r *Reporter) NeedUserAction(message string) {
	if message == "" {
		message = "Action needed. Please confirm."
	}
	r.emit(statusbus.LevelWarn, message)
	r.speak(message)
}
