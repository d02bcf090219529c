package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scrum/internal/date"
	"scrum/internal/models"
	"scrum/internal/scheduler"
	"scrum/internal/storage/sqlite"
)

func weekSnapshot() models.SprintSnapshot {
	start := date.New(2024, time.March, 4)
	return models.SprintSnapshot{
		Sprint: models.Sprint{ID: 1, Name: "week 10", GoalTaskIDs: []int64{2}, StartDate: start, EndDate: start.AddDays(6)},
		Tasks: []models.Task{
			{ID: 1, Name: "A", Status: models.StatusInProgress, LengthHours: 8, WorkerIDs: []int64{1}},
			{ID: 2, Name: "B", Status: models.StatusNew, LengthHours: 6, DependencyIDs: []int64{1}},
		},
		Entries: []models.HourEntry{{ID: 1, TaskID: 1, WorkerID: 1, Date: start, Hours: 4}},
	}
}

func TestRenderReport(t *testing.T) {
	snap := weekSnapshot()
	today := snap.Sprint.StartDate
	var buf bytes.Buffer
	renderReport(&buf, snap, scheduler.Analyze(snap, today), []models.Worker{{ID: 1, Name: "ana"}})
	out := buf.String()

	for _, want := range []string{
		"Sprint 001:week 10",
		"7 total, 1 burned, 6 left",
		"ideal 2.00, actual 4.00, required 1.67",
		"001:ana",
		"001:A",
		"002:B",
		"2024-03-10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "001:A") > strings.Index(out, "002:B") {
		t.Errorf("dependency must be listed first:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, nil, date.New(2024, time.March, 4))
	if !strings.Contains(buf.String(), "no sprints") {
		t.Fatalf("empty summary = %q", buf.String())
	}

	buf.Reset()
	snap := weekSnapshot()
	renderSummary(&buf, []models.SprintSnapshot{snap}, date.New(2024, time.March, 20))
	if out := buf.String(); !strings.Contains(out, "finished") || !strings.Contains(out, "4.00/14.00h") {
		t.Fatalf("summary = %q", out)
	}
}

// seedOrderDB writes two dependent tasks to a fresh database and releases it.
func seedOrderDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	store, err := sqlite.Open(dbPath, nil, sqlite.Options{StrictNames: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	for _, in := range []models.NewTask{
		{Name: "schema", LengthHours: 1},
		{Name: "api", LengthHours: 2, Deps: []models.Ref{models.ByName("schema")}},
	} {
		if _, err := store.AddTask(ctx, in); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}
	return dbPath
}

// runRoot executes the root command with args and returns its output.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOrderCommand(t *testing.T) {
	dbPath := seedOrderDB(t)
	out, err := runRoot(t, "order", "api", "--db", dbPath, "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("order: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "001:schema") || !strings.Contains(lines[1], "002:api") {
		t.Fatalf("order output = %q", out)
	}
}

func TestFlagOverridesInvalidEnvLevel(t *testing.T) {
	dbPath := seedOrderDB(t)
	t.Setenv("SCRUM_LOG_LEVEL", "chatty")
	_, err := runRoot(t, "order", "api", "--db", dbPath, "--log-level", "error", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("a valid --log-level must win over SCRUM_LOG_LEVEL: %v", err)
	}
}
