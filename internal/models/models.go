package models

import (
	"time"

	"scrum/internal/date"
)

// Worker is a person that can be assigned to tasks and log hours.
type Worker struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Key returns the canonical key of the worker.
func (w Worker) Key() Key { return Key{ID: w.ID, Name: w.Name} }

// Task is a unit of work with an estimated length and dependencies on other tasks.
type Task struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Status        Status               `json:"status"`
	LengthHours   float64              `json:"length_hours"`
	WorkerIDs     []int64              `json:"worker_ids"`
	DependencyIDs []int64              `json:"dependency_ids"`
	Description   string               `json:"description"`
	StatusDates   map[Status]time.Time `json:"status_dates"`
}

// Key returns the canonical key of the task.
func (t Task) Key() Key { return Key{ID: t.ID, Name: t.Name} }

// DependsOn reports whether id is a direct dependency of t.
func (t Task) DependsOn(id int64) bool {
	for _, d := range t.DependencyIDs {
		if d == id {
			return true
		}
	}
	return false
}

// HourEntry is one logged unit of work. WorkerID is zero once the worker has been removed.
type HourEntry struct {
	ID       int64     `json:"id"`
	TaskID   int64     `json:"task_id"`
	WorkerID int64     `json:"worker_id"`
	Date     date.Date `json:"date"`
	Hours    float64   `json:"hours"`
}

// Sprint is a time box whose scope is the dependency closure of its goal tasks.
type Sprint struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	GoalTaskIDs []int64   `json:"goal_task_ids"`
	StartDate   date.Date `json:"start_date"`
	EndDate     date.Date `json:"end_date"`
}

// Key returns the canonical key of the sprint.
func (s Sprint) Key() Key { return Key{ID: s.ID, Name: s.Name} }

// NewTask carries the inputs of an addTask call.
type NewTask struct {
	Name        string
	LengthHours float64
	Workers     []Ref
	Deps        []Ref
	// CreatedAt stamps the backlog status; zero means now.
	CreatedAt   time.Time
	Description string
}

// SprintSnapshot is a consistent read of everything sprint analytics needs.
// Tasks holds the goal closure in resolver order.
type SprintSnapshot struct {
	Sprint  Sprint      `json:"sprint"`
	Tasks   []Task      `json:"tasks"`
	Entries []HourEntry `json:"entries"`
}

// TaskUpdate is a partial task update; nil fields are left alone. A non-nil
// empty Workers or Deps clears the set.
type TaskUpdate struct {
	LengthHours *float64
	Description *string
	Workers     *[]Ref
	Deps        *[]Ref
	Status      *Status
	// StatusAt stamps the status; zero means now.
	StatusAt    time.Time
}

// Fields lists the names of the fields u sets.
func (u TaskUpdate) Fields() []string {
	var fields []string
	if u.LengthHours != nil {
		fields = append(fields, "length")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	if u.Workers != nil {
		fields = append(fields, "workers")
	}
	if u.Deps != nil {
		fields = append(fields, "dependencies")
	}
	if u.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}
