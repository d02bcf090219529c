package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"scrum/internal/date"
	"scrum/internal/storage/sqlite"
)

var sprintStart = date.New(2024, time.March, 4)

func newTestServer(t *testing.T, strict bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), logger, sqlite.Options{
		StrictNames: strict,
		LockTimeout: time.Second,
		Clock:       func() time.Time { return sprintStart.Time.Add(9 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := New(store, logger, "")
	srv.today = func() date.Date { return sprintStart }
	return srv
}

// do sends a JSON request and decodes the JSON response body.
func do(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

func TestSprintFlow(t *testing.T) {
	srv := newTestServer(t, true)

	w, _ := do(t, srv, http.MethodPost, "/api/workers", gin.H{"name": "ana"})
	expectStatus(t, w, http.StatusCreated)
	w, _ = do(t, srv, http.MethodPost, "/api/tasks", gin.H{"name": "A", "length_hours": 8, "workers": []any{"ana"}})
	expectStatus(t, w, http.StatusCreated)
	w, body := do(t, srv, http.MethodPost, "/api/tasks", gin.H{"name": "B", "length_hours": 6, "deps": []any{1}})
	expectStatus(t, w, http.StatusCreated)
	if task := body["task"].(map[string]any); task["status"] != "backlog" {
		t.Fatalf("new task = %v", task)
	}

	w, _ = do(t, srv, http.MethodPost, "/api/sprints", gin.H{
		"name":  "week 10",
		"goals": []any{"B"},
		"start": "2024-03-04",
		"end":   "2024-03-10",
	})
	expectStatus(t, w, http.StatusCreated)

	w, body = do(t, srv, http.MethodGet, "/api/tasks/A", nil)
	expectStatus(t, w, http.StatusOK)
	if body["key"] != "001:A" || body["task"].(map[string]any)["status"] != "new" {
		t.Fatalf("task A after sprint = %v", body)
	}

	w, body = do(t, srv, http.MethodPost, "/api/tasks/001:A/hours", gin.H{"worker": "ana", "hours": 4})
	expectStatus(t, w, http.StatusCreated)
	if entry := body["entry"].(map[string]any); entry["date"] != "2024-03-04" {
		t.Fatalf("entry without date must default to today, got %v", entry)
	}

	w, body = do(t, srv, http.MethodGet, "/api/sprints/week%2010/report?today=2024-03-04", nil)
	expectStatus(t, w, http.StatusOK)
	report := body["report"].(map[string]any)
	checks := map[string]float64{
		"expected_hours":  14,
		"completed_hours": 4,
		"ideal_burn":      2,
		"actual_burn":     4,
		"days_left":       6,
		"num_days":        7,
	}
	for field, want := range checks {
		if got, ok := report[field].(float64); !ok || got != want {
			t.Errorf("report.%s = %v, want %v", field, report[field], want)
		}
	}
	if next := report["next_task"].(map[string]any); next["name"] != "A" {
		t.Errorf("next task = %v", next)
	}

	w, body = do(t, srv, http.MethodGet, "/api/sprints/week%2010/report?today=2024-03-01", nil)
	expectStatus(t, w, http.StatusOK)
	if burn := body["report"].(map[string]any)["actual_burn"]; burn != nil {
		t.Errorf("actual burn before the sprint starts must be null, got %v", burn)
	}

	w, body = do(t, srv, http.MethodGet, "/api/sprints/1/burndown", nil)
	expectStatus(t, w, http.StatusOK)
	if points := body["burndown"].([]any); len(points) != 7 {
		t.Errorf("burndown has %d points", len(points))
	}

	w, body = do(t, srv, http.MethodGet, "/api/workers/ana", nil)
	expectStatus(t, w, http.StatusOK)
	if body["hours"] != 4.0 || body["expected_hours"] != 14.0 {
		t.Errorf("worker summary = %v", body)
	}

	w, _ = do(t, srv, http.MethodPost, "/api/tasks/A/finish", nil)
	expectStatus(t, w, http.StatusOK)
	w, body = do(t, srv, http.MethodGet, "/api/sprints/week%2010/next", nil)
	expectStatus(t, w, http.StatusOK)
	if next := body["task"].(map[string]any); next["name"] != "B" {
		t.Errorf("next after finishing A = %v", next)
	}
}

func TestOrderEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	for _, task := range []gin.H{
		{"name": "schema", "length_hours": 2},
		{"name": "api", "length_hours": 3, "deps": []any{"schema"}},
		{"name": "ui", "length_hours": 5, "deps": []any{"api"}},
	} {
		w, _ := do(t, srv, http.MethodPost, "/api/tasks", task)
		expectStatus(t, w, http.StatusCreated)
	}

	w, body := do(t, srv, http.MethodGet, "/api/order?goal=ui", nil)
	expectStatus(t, w, http.StatusOK)
	order := body["order"].([]any)
	want := []string{"001:schema", "002:api", "003:ui"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	w, _ = do(t, srv, http.MethodGet, "/api/order", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, false)
	for _, task := range []gin.H{
		{"name": "dup", "length_hours": 1},
		{"name": "dup", "length_hours": 1},
		{"name": "base", "length_hours": 1},
		{"name": "top", "length_hours": 1, "deps": []any{"base"}},
	} {
		w, _ := do(t, srv, http.MethodPost, "/api/tasks", task)
		expectStatus(t, w, http.StatusCreated)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown task", http.MethodGet, "/api/tasks/missing", nil, http.StatusNotFound},
		{"ambiguous name", http.MethodGet, "/api/tasks/dup", nil, http.StatusConflict},
		{"canonical key disambiguates", http.MethodGet, "/api/tasks/002:dup", nil, http.StatusOK},
		{"cycle", http.MethodPatch, "/api/tasks/base", gin.H{"deps": []any{"top"}}, http.StatusUnprocessableEntity},
		{"self dependency", http.MethodPatch, "/api/tasks/base", gin.H{"deps": []any{"base"}}, http.StatusBadRequest},
		{"zero length", http.MethodPost, "/api/tasks", gin.H{"name": "x", "length_hours": 0}, http.StatusBadRequest},
		{"bad status", http.MethodPatch, "/api/tasks/top", gin.H{"status": "done"}, http.StatusBadRequest},
		{"same status again", http.MethodPatch, "/api/tasks/top", gin.H{"status": "backlog"}, http.StatusOK},
		{"hours without worker", http.MethodPost, "/api/tasks/top/hours", gin.H{"hours": 1}, http.StatusBadRequest},
		{"hours with null worker", http.MethodPost, "/api/tasks/top/hours", gin.H{"worker": nil, "hours": 1}, http.StatusBadRequest},
		{"sprint ends before start", http.MethodPost, "/api/sprints", gin.H{"name": "s", "goals": []any{"top"}, "start": "2024-03-04", "end": "2024-03-01"}, http.StatusBadRequest},
		{"bad report date", http.MethodGet, "/api/sprints/1/report?today=yesterday", nil, http.StatusBadRequest},
		{"unknown hour entry", http.MethodDelete, "/api/hours/99", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, srv, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.want)
			if tt.want >= 400 && body["error"] == nil {
				t.Fatalf("error response without message: %s", w.Body.String())
			}
		})
	}

	w, body := do(t, srv, http.MethodGet, "/api/tasks/base", nil)
	expectStatus(t, w, http.StatusOK)
	if deps := body["task"].(map[string]any)["dependency_ids"]; deps != nil {
		t.Fatalf("rejected updates must not write, deps = %v", deps)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, true)

	w, _ := do(t, srv, http.MethodGet, "/api/healthz", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("missing %s header", requestIDHeader)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q, want the caller's", got)
	}
}

func TestPatchTaskAllOrNothing(t *testing.T) {
	srv := newTestServer(t, false)
	for _, task := range []gin.H{
		{"name": "base", "length_hours": 1},
		{"name": "top", "length_hours": 2},
	} {
		w, _ := do(t, srv, http.MethodPost, "/api/tasks", task)
		expectStatus(t, w, http.StatusCreated)
	}

	w, _ := do(t, srv, http.MethodPatch, "/api/tasks/top", gin.H{"deps": []any{"base"}, "workers": []any{"nobody"}})
	expectStatus(t, w, http.StatusNotFound)

	w, _ = do(t, srv, http.MethodPatch, "/api/tasks/top", gin.H{"status": "inprogress"})
	expectStatus(t, w, http.StatusOK)
	w, _ = do(t, srv, http.MethodPatch, "/api/tasks/top", gin.H{"length_hours": 9, "status": "backlog"})
	expectStatus(t, w, http.StatusBadRequest)

	w, body := do(t, srv, http.MethodGet, "/api/tasks/top", nil)
	expectStatus(t, w, http.StatusOK)
	task := body["task"].(map[string]any)
	if deps := task["dependency_ids"]; deps != nil {
		t.Fatalf("dependencies written by a failed update: %v", deps)
	}
	if got := task["length_hours"]; got != 2.0 {
		t.Fatalf("length_hours = %v, want 2", got)
	}
	if got := task["status"]; got != "inprogress" {
		t.Fatalf("status = %v, want inprogress", got)
	}
}
