// Package lifecycle holds the task status transition table.
//
// Automatic transitions are driven by events (a task entering a sprint, hours
// being logged, an explicit finish). Explicit status updates are validated
// against the same table.
package lifecycle

import (
	"time"

	"scrum/internal/models"
)

// Event is something that happened to a task and may move its status.
type Event int

const (
	// EnterSprint fires when a task becomes part of a sprint's goal closure.
	EnterSprint Event = iota
	// LogHours fires when an hour entry is added for the task.
	LogHours
	// Finish is the explicit finish action.
	Finish
)

func (e Event) String() string {
	switch e {
	case EnterSprint:
		return "enter-sprint"
	case LogHours:
		return "log-hours"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

// allowed lists the edges of the status graph. Re-entering the current status is
// always permitted and only refreshes its timestamp.
var allowed = map[models.Status][]models.Status{
	models.StatusBacklog:    {models.StatusNew, models.StatusInProgress, models.StatusFinished},
	models.StatusNew:        {models.StatusInProgress, models.StatusFinished},
	models.StatusInProgress: {models.StatusFinished},
	models.StatusFinished:   {models.StatusInProgress},
}

// IsAllowed reports whether from -> to is an edge of the status graph.
func IsAllowed(from, to models.Status) bool {
	if from == to {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Fire returns the status a task in cur moves to on ev. The boolean is false when
// the event leaves the status (and its timestamps) untouched.
func Fire(cur models.Status, ev Event) (models.Status, bool) {
	switch ev {
	case EnterSprint:
		if cur == models.StatusBacklog {
			return models.StatusNew, true
		}
	case LogHours:
		if cur != models.StatusInProgress {
			return models.StatusInProgress, true
		}
	case Finish:
		return models.StatusFinished, true
	}
	return cur, false
}

// Set validates an explicit status update from cur to to.
func Set(cur, to models.Status) error {
	if _, err := models.ParseStatus(string(to)); err != nil {
		return err
	}
	if !IsAllowed(cur, to) {
		return models.Invalidf("status transition %s -> %s is not allowed", cur, to)
	}
	return nil
}

// Apply moves t to status to and stamps the matching status date.
func Apply(t *models.Task, to models.Status, at time.Time) {
	if t.StatusDates == nil {
		t.StatusDates = make(map[models.Status]time.Time, len(models.Statuses))
	}
	t.Status = to
	t.StatusDates[to] = at
}
