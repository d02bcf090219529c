package scheduler

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"scrum/internal/date"
	"scrum/internal/models"
)

var sprintStart = date.New(2024, time.March, 4)

// weekSprint builds a 7 day sprint over tasks A (8h) and B (6h, depends on A).
func weekSprint(entries ...models.HourEntry) models.SprintSnapshot {
	return models.SprintSnapshot{
		Sprint: models.Sprint{
			ID:          1,
			Name:        "week",
			GoalTaskIDs: []int64{2},
			StartDate:   sprintStart,
			EndDate:     sprintStart.AddDays(6),
		},
		Tasks: []models.Task{
			{ID: 1, Name: "A", Status: models.StatusNew, LengthHours: 8, WorkerIDs: []int64{1}},
			{ID: 2, Name: "B", Status: models.StatusNew, LengthHours: 6, DependencyIDs: []int64{1}, WorkerIDs: []int64{1, 2}},
		},
		Entries: entries,
	}
}

func entry(id, task int64, d date.Date, hours float64) models.HourEntry {
	return models.HourEntry{ID: id, TaskID: task, WorkerID: 1, Date: d, Hours: hours}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mustFloat(t *testing.T, v Value) float64 {
	t.Helper()
	f, err := v.Float()
	if err != nil {
		t.Fatalf("expected defined value: %v", err)
	}
	return f
}

func TestBurnArithmetic(t *testing.T) {
	snap := weekSprint(entry(1, 1, sprintStart, 4))
	today := sprintStart

	if got := NumDays(snap.Sprint); got != 7 {
		t.Fatalf("NumDays = %d", got)
	}
	if got := ExpectedHours(snap); got != 14 {
		t.Fatalf("ExpectedHours = %v", got)
	}
	if got := mustFloat(t, IdealBurn(snap)); !approx(got, 2.0) {
		t.Fatalf("IdealBurn = %v", got)
	}
	if got := mustFloat(t, ActualBurn(snap, today)); !approx(got, 4.0) {
		t.Fatalf("ActualBurn = %v", got)
	}
	if got := DaysLeft(snap.Sprint, today); got != 6 {
		t.Fatalf("DaysLeft = %d", got)
	}
	if got := mustFloat(t, RequiredBurn(snap, today)); !approx(got, 10.0/6.0) {
		t.Fatalf("RequiredBurn = %v", got)
	}

	projected, err := ProjectedCompletion(snap, today).Time()
	if err != nil {
		t.Fatalf("projected completion: %v", err)
	}
	if want := sprintStart.Time.Add(84 * time.Hour); !projected.Equal(want) {
		t.Fatalf("projected = %v, want %v", projected, want)
	}
	if got := mustFloat(t, DailyGain(snap, today)); !approx(got, 0.5) {
		t.Fatalf("DailyGain = %v", got)
	}
}

func TestUndefinedPropagation(t *testing.T) {
	snap := weekSprint()
	today := sprintStart.AddDays(2)

	if v := ActualBurn(snap, today); !v.OK() || mustFloat(t, v) != 0 {
		t.Fatalf("ActualBurn with no hours should be a defined zero, got %v", v)
	}
	if ProjectedCompletion(snap, today).OK() {
		t.Fatalf("projected completion must be undefined with zero burn")
	}
	gain := DailyGain(snap, today)
	if gain.OK() {
		t.Fatalf("daily gain must be undefined")
	}
	if _, err := gain.Float(); !errors.Is(err, models.ErrUndefined) {
		t.Fatalf("expected ErrUndefined, got %v", err)
	}
	if gain.String() != "N/A" {
		t.Fatalf("String() = %q", gain.String())
	}
	raw, _ := json.Marshal(gain)
	if string(raw) != "null" {
		t.Fatalf("json = %s", raw)
	}
}

func TestRequiredBurnUndefinedOnLastDay(t *testing.T) {
	snap := weekSprint()
	for _, today := range []date.Date{snap.Sprint.EndDate, snap.Sprint.EndDate.AddDays(3)} {
		if RequiredBurn(snap, today).OK() {
			t.Fatalf("required burn must be undefined when no days are left (today %s)", today)
		}
	}
}

func TestActualBurnBeforeStartIsUndefined(t *testing.T) {
	snap := weekSprint()
	if ActualBurn(snap, sprintStart.AddDays(-1)).OK() {
		t.Fatalf("actual burn before the sprint starts must be undefined")
	}
}

func TestDaysBurnedClampedToSprint(t *testing.T) {
	snap := weekSprint(entry(1, 1, sprintStart, 7))
	after := sprintStart.AddDays(30)
	if got := DaysBurned(snap.Sprint, after); got != 7 {
		t.Fatalf("DaysBurned = %d, want 7", got)
	}
	if got := mustFloat(t, ActualBurn(snap, after)); !approx(got, 1.0) {
		t.Fatalf("ActualBurn = %v", got)
	}
}

func TestCompletedHoursWindow(t *testing.T) {
	snap := weekSprint(
		entry(1, 1, sprintStart.AddDays(-1), 3), // before window
		entry(2, 1, sprintStart, 2),
		entry(3, 2, sprintStart.AddDays(6), 1), // last day counts
		entry(4, 2, sprintStart.AddDays(7), 5), // after window
		entry(5, 9, sprintStart, 11),           // task outside the closure
	)
	if got := CompletedHours(snap); got != 3 {
		t.Fatalf("CompletedHours = %v, want 3", got)
	}
	if got := HoursLoggedSoFar(snap, sprintStart.AddDays(1)); got != 2 {
		t.Fatalf("HoursLoggedSoFar = %v, want 2", got)
	}
}

func TestActiveAndFinished(t *testing.T) {
	s := weekSprint().Sprint
	tests := []struct {
		d        date.Date
		active   bool
		finished bool
	}{
		{sprintStart.AddDays(-1), false, false},
		{sprintStart, true, false},
		{s.EndDate, true, false},
		{s.EndDate.AddDays(1), false, true},
	}
	for _, tt := range tests {
		if got := IsActive(s, tt.d); got != tt.active {
			t.Errorf("IsActive(%s) = %v", tt.d, got)
		}
		if got := IsFinished(s, tt.d); got != tt.finished {
			t.Errorf("IsFinished(%s) = %v", tt.d, got)
		}
	}
}

func TestSuggestNextTask(t *testing.T) {
	snap := weekSprint()
	next, ok := SuggestNextTask(snap)
	if !ok || next.Name != "A" {
		t.Fatalf("next = %v, %v", next.Name, ok)
	}

	snap.Tasks[0].Status = models.StatusFinished
	next, ok = SuggestNextTask(snap)
	if !ok || next.Name != "B" {
		t.Fatalf("next = %v, %v", next.Name, ok)
	}
	if got := ExpectedRemainingHours(snap); got != 6 {
		t.Fatalf("ExpectedRemainingHours = %v", got)
	}

	snap.Tasks[1].Status = models.StatusFinished
	if _, ok := SuggestNextTask(snap); ok {
		t.Fatalf("expected no suggestion when everything is finished")
	}
}

func TestBurndown(t *testing.T) {
	snap := weekSprint(entry(1, 1, sprintStart, 4), entry(2, 2, sprintStart.AddDays(1), 3))
	points := Burndown(snap, sprintStart.AddDays(1))
	if len(points) != 7 {
		t.Fatalf("len = %d", len(points))
	}
	if points[0].RemainingHours != 10 || points[1].RemainingHours != 7 {
		t.Fatalf("remaining = %v, %v", points[0].RemainingHours, points[1].RemainingHours)
	}
	if points[1].Future || !points[2].Future {
		t.Fatalf("future flags wrong: %+v", points[:3])
	}
	if !approx(points[6].IdealRemaining, 0) || !approx(points[0].IdealRemaining, 12) {
		t.Fatalf("ideal line = %v .. %v", points[0].IdealRemaining, points[6].IdealRemaining)
	}
}

func TestAnalyze(t *testing.T) {
	r := Analyze(weekSprint(entry(1, 1, sprintStart, 4)), sprintStart)
	if r.NextTask == nil || r.NextTask.String() != "001:A" {
		t.Fatalf("next task = %v", r.NextTask)
	}
	if len(r.Order) != 2 || r.Order[1].Name != "B" {
		t.Fatalf("order = %v", r.Order)
	}
	if len(r.WorkerIDs) != 2 {
		t.Fatalf("workers = %v", r.WorkerIDs)
	}
	if !r.Active || r.Finished {
		t.Fatalf("active/finished = %v/%v", r.Active, r.Finished)
	}
}

func TestWorkerExpectedHours(t *testing.T) {
	a := weekSprint()
	b := weekSprint()
	b.Tasks = b.Tasks[:1]
	if got := WorkerExpectedHours([]models.SprintSnapshot{a, b}, 1); got != 22 {
		t.Fatalf("worker 1 = %v, want 22", got)
	}
	if got := WorkerExpectedHours([]models.SprintSnapshot{a, b}, 2); got != 14 {
		t.Fatalf("worker 2 = %v, want 14", got)
	}
}
