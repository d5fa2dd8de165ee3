package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/emilalvaro25/vibe/internal/config"
	"github.com/emilalvaro25/vibe/internal/store"
)

type fakeRunner struct {
	goals []string
}

func (f *fakeRunner) Start(_ context.Context, goal, _ string) (string, error) {
	f.goals = append(f.goals, goal)
	return "run-123", nil
}

func newTestServer(t *testing.T) (*Server, store.RunStore, *fakeRunner, *http.ServeMux) {
	t.Helper()
	st, err := store.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	runner := &fakeRunner{}
	s := NewServer(st, nil, nil, runner, config.WebConfig{}, "test")
	mux := http.NewServeMux()
	s.registerAPI(mux)
	return s, st, runner, mux
}

func TestStartRelay(t *testing.T) {
	_, _, runner, mux := newTestServer(t)

	body := bytes.NewBufferString(`{"goal":"build a page","todo":"hero first"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/relay", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["run_id"] != "run-123" {
		t.Errorf("run_id = %q", resp["run_id"])
	}
	if len(runner.goals) != 1 || runner.goals[0] != "build a page" {
		t.Errorf("runner goals = %v", runner.goals)
	}
}

func TestStartRelayRequiresGoal(t *testing.T) {
	_, _, _, mux := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/relay", bytes.NewBufferString(`{"goal":"  "}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, _, _, mux := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/relay/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetTaskLog(t *testing.T) {
	_, st, _, mux := newTestServer(t)
	run, err := st.CreateRun("a goal", "", "# Task Log\n\ncontents")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/relay/"+run.ID+"/task.md", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Task Log") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
}

func TestListRuns(t *testing.T) {
	_, st, _, mux := newTestServer(t)
	if _, err := st.CreateRun("first goal", "", "md"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/relay", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var runs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0]["goal"] != "first goal" {
		t.Errorf("runs = %v", runs)
	}
}

func TestExportRun(t *testing.T) {
	_, st, _, mux := newTestServer(t)
	run, err := st.CreateRun("a goal", "", "md")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	artifact := "<!-- file: index.html -->\n<h1>done</h1>\n<!-- file: app.js -->\nconsole.log(1);"
	if _, err := st.AddStep(&store.RelayStep{RunID: run.ID, AgentID: "GEM-API-10", Role: "final-review", Output: artifact, Status: "ok"}); err != nil {
		t.Fatalf("AddStep: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/relay/"+run.ID+"/export", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "index.html" {
		t.Errorf("entries = %v", zr.File)
	}
}

func TestExportRunWithoutArtifact(t *testing.T) {
	_, st, _, mux := newTestServer(t)
	run, err := st.CreateRun("a goal", "", "md")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/relay/"+run.ID+"/export", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestSchedulesUnavailableWithoutStore(t *testing.T) {
	_, _, _, mux := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("list: code %d body %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/schedules", bytes.NewBufferString(`{"goal":"g","schedule":"* * * * *"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("create: code %d, want 503", rec.Code)
	}
}

func TestScheduleCRUD(t *testing.T) {
	st, err := store.New(config.StoreConfig{Path: t.TempDir() + "/vibe.db"})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	s := NewServer(st, st, nil, &fakeRunner{}, config.WebConfig{}, "test")
	mux := http.NewServeMux()
	s.registerAPI(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/schedules", bytes.NewBufferString(`{"name":"nightly","goal":"refresh","schedule":"0 2 * * *"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: code %d body %s", rec.Code, rec.Body)
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" || created["enabled"] != true {
		t.Fatalf("created = %v", created)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/schedules/"+id, bytes.NewBufferString(`{"enabled":false}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: code %d body %s", rec.Code, rec.Body)
	}
	sc, err := st.GetSchedule(id)
	if err != nil || sc == nil || sc.Status != "paused" {
		t.Fatalf("after update: %+v err %v", sc, err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/schedules/"+id, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: code %d", rec.Code)
	}
	sc, err = st.GetSchedule(id)
	if err != nil || sc != nil {
		t.Fatalf("after delete: %+v err %v", sc, err)
	}
}

func TestScheduleRejectsBadCron(t *testing.T) {
	st, err := store.New(config.StoreConfig{Path: t.TempDir() + "/vibe.db"})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	s := NewServer(st, st, nil, &fakeRunner{}, config.WebConfig{}, "test")
	mux := http.NewServeMux()
	s.registerAPI(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/schedules", bytes.NewBufferString(`{"goal":"g","schedule":"not a cron"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code %d, want 400", rec.Code)
	}
}
