package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emilalvaro25/vibe/internal/export"
	"github.com/emilalvaro25/vibe/internal/fileparse"
	"github.com/emilalvaro25/vibe/internal/schedule"
	"github.com/emilalvaro25/vibe/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Relay runs
	mux.HandleFunc("POST /api/relay", s.startRelay)
	mux.HandleFunc("GET /api/relay", s.listRuns)
	mux.HandleFunc("GET /api/relay/{id}", s.getRun)
	mux.HandleFunc("GET /api/relay/{id}/task.md", s.getTaskLog)
	mux.HandleFunc("GET /api/relay/{id}/files", s.getRunFiles)
	mux.HandleFunc("GET /api/relay/{id}/export", s.exportRun)

	// Schedules
	mux.HandleFunc("GET /api/schedules", s.listSchedules)
	mux.HandleFunc("POST /api/schedules", s.createSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.updateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.deleteSchedule)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

func (s *Server) startRelay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Goal string `json:"goal"`
		Todo string `json:"todo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Goal) == "" {
		jsonError(w, "goal is required", http.StatusBadRequest)
		return
	}

	runID, err := s.runner.Start(r.Context(), body.Goal, body.Todo)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": runID, "status": "running"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(50)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, map[string]any{
			"id":         run.ID,
			"goal":       run.Goal,
			"status":     run.Status,
			"created_at": run.CreatedAt,
			"updated_at": run.UpdatedAt,
		})
	}
	jsonResponse(w, out)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, steps, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	jsonResponse(w, map[string]any{"run": run, "steps": steps})
}

func (s *Server) getTaskLog(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, run.TaskMD)
}

func (s *Server) getRunFiles(w http.ResponseWriter, r *http.Request) {
	files, ok := s.artifactFiles(w, r)
	if !ok {
		return
	}
	jsonResponse(w, files)
}

func (s *Server) exportRun(w http.ResponseWriter, r *http.Request) {
	files, ok := s.artifactFiles(w, r)
	if !ok {
		return
	}
	data, err := export.Archive(files)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="generated-project.zip"`)
	w.Write(data)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*store.RelayRun, []store.RelayStep, bool) {
	id := r.PathValue("id")
	run, err := s.runs.GetRun(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return nil, nil, false
	}
	steps, err := s.runs.ListSteps(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	return run, steps, true
}

// artifactFiles parses the last step's output, the run's final artifact,
// into named files.
func (s *Server) artifactFiles(w http.ResponseWriter, r *http.Request) ([]fileparse.File, bool) {
	_, steps, ok := s.loadRun(w, r)
	if !ok {
		return nil, false
	}
	artifact := ""
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Output != "" {
			artifact = steps[i].Output
			break
		}
	}
	return fileparse.Parse(artifact), true
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		jsonResponse(w, []any{})
		return
	}
	schedules, err := s.schedules.ListSchedules()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(schedules))
	for _, sc := range schedules {
		out = append(out, scheduleToAPI(sc))
	}
	jsonResponse(w, out)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		jsonError(w, "schedules unavailable", http.StatusServiceUnavailable)
		return
	}
	var body struct {
		Name     string `json:"name"`
		Goal     string `json:"goal"`
		Todo     string `json:"todo"`
		Schedule string `json:"schedule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Goal) == "" || strings.TrimSpace(body.Schedule) == "" {
		jsonError(w, "goal and schedule are required", http.StatusBadRequest)
		return
	}

	normalized, err := schedule.Normalize(body.Schedule)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		body.Name = body.Goal
	}

	sc := &store.Schedule{
		ID:        uuid.NewString(),
		Name:      body.Name,
		Goal:      body.Goal,
		Todo:      body.Todo,
		Schedule:  normalized,
		Status:    "active",
		NextRunAt: schedule.NextRun(normalized),
	}
	if err := s.schedules.SaveSchedule(sc); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, scheduleToAPI(*sc))
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		jsonError(w, "schedules unavailable", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	existing, err := s.schedules.GetSchedule(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		jsonError(w, "schedule not found", http.StatusNotFound)
		return
	}

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Enabled != nil {
		status := "paused"
		if *body.Enabled {
			status = "active"
		}
		if err := s.schedules.UpdateScheduleStatus(id, status); err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	jsonResponse(w, map[string]string{"status": "saved"})
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		jsonError(w, "schedules unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := s.schedules.DeleteSchedule(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"version": s.version,
		"uptime":  formatUptime(time.Since(s.startedAt)),
	})
}

func scheduleToAPI(sc store.Schedule) map[string]any {
	m := map[string]any{
		"id":               sc.ID,
		"name":             sc.Name,
		"goal":             sc.Goal,
		"todo":             sc.Todo,
		"schedule":         sc.Schedule,
		"schedule_display": schedule.Describe(sc.Schedule),
		"enabled":          sc.Status == "active",
		"status":           sc.Status,
	}
	if sc.LastRunAt != nil {
		m["last_run"] = formatRunTime(*sc.LastRunAt)
		m["last_status"] = sc.LastStatus
	}
	if sc.NextRunAt != nil {
		m["next_run"] = formatRunTime(*sc.NextRunAt)
	}
	return m
}

func formatRunTime(t time.Time) string {
	local := t.Local()
	now := time.Now()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 2 15:04")
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
