// Package scheduler derives sprint progress and velocity figures from a store
// snapshot. Nothing here is persisted; every figure is recomputed from the
// snapshot and the supplied "today".
package scheduler

import (
	"math"
	"slices"
	"time"

	"scrum/internal/date"
	"scrum/internal/models"
)

const secondsPerDay = 86400.0

// ExpectedHours sums the estimated length of every task in the goal closure.
func ExpectedHours(snap models.SprintSnapshot) float64 {
	var total float64
	for _, t := range snap.Tasks {
		total += t.LengthHours
	}
	return total
}

// ExpectedRemainingHours sums the length of closure tasks that are not finished.
func ExpectedRemainingHours(snap models.SprintSnapshot) float64 {
	var total float64
	for _, t := range RemainingTasks(snap) {
		total += t.LengthHours
	}
	return total
}

// EntriesInSprint returns the hour entries of closure tasks dated inside the
// sprint window.
func EntriesInSprint(snap models.SprintSnapshot) []models.HourEntry {
	inClosure := make(map[int64]bool, len(snap.Tasks))
	for _, t := range snap.Tasks {
		inClosure[t.ID] = true
	}
	var out []models.HourEntry
	for _, e := range snap.Entries {
		if inClosure[e.TaskID] && e.Date.Between(snap.Sprint.StartDate, snap.Sprint.EndDate) {
			out = append(out, e)
		}
	}
	return out
}

// CompletedHours sums every in-window entry, including entries dated after today.
func CompletedHours(snap models.SprintSnapshot) float64 {
	var total float64
	for _, e := range EntriesInSprint(snap) {
		total += e.Hours
	}
	return total
}

// HoursLoggedSoFar sums in-window entries dated on or before today.
func HoursLoggedSoFar(snap models.SprintSnapshot, today date.Date) float64 {
	var total float64
	for _, e := range EntriesInSprint(snap) {
		if !e.Date.After(today) {
			total += e.Hours
		}
	}
	return total
}

// NumDays is the sprint length counting both endpoints.
func NumDays(s models.Sprint) int {
	return s.StartDate.DaysUntil(s.EndDate) + 1
}

// DaysBurned counts sprint days elapsed up to and including today, capped at
// the sprint length. It is zero or negative before the sprint starts.
func DaysBurned(s models.Sprint, today date.Date) int {
	return min(s.StartDate.DaysUntil(today)+1, NumDays(s))
}

// DaysLeft counts whole days from today to the end date. The last day itself
// is still available, so zero means "today is the last day".
func DaysLeft(s models.Sprint, today date.Date) int {
	return today.DaysUntil(s.EndDate)
}

// IdealBurn is the hours per day needed to finish exactly on the end date.
func IdealBurn(snap models.SprintSnapshot) Value {
	return ratio(ExpectedHours(snap), float64(NumDays(snap.Sprint)))
}

// ActualBurn is the hours logged so far per elapsed day.
func ActualBurn(snap models.SprintSnapshot, today date.Date) Value {
	days := DaysBurned(snap.Sprint, today)
	if days <= 0 {
		return Undefined()
	}
	return ratio(HoursLoggedSoFar(snap, today), float64(days))
}

// RequiredBurn is the hours per day still needed to finish on time.
func RequiredBurn(snap models.SprintSnapshot, today date.Date) Value {
	left := DaysLeft(snap.Sprint, today)
	if left <= 0 {
		return Undefined()
	}
	return ratio(ExpectedHours(snap)-HoursLoggedSoFar(snap, today), float64(left))
}

// ProjectedCompletion extrapolates the actual burn rate from the start date.
func ProjectedCompletion(snap models.SprintSnapshot, today date.Date) Instant {
	burn, err := ActualBurn(snap, today).Float()
	if err != nil || burn == 0 {
		return Instant{}
	}
	seconds := ExpectedHours(snap) / burn * secondsPerDay
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || math.Abs(seconds) > math.MaxInt64/float64(time.Second) {
		return Instant{}
	}
	offset := time.Duration(seconds * float64(time.Second))
	return Instant{t: snap.Sprint.StartDate.Time.Add(offset), ok: true}
}

// DailyGain is how many days per sprint day the team is ahead of the end of the
// last sprint day (negative when behind).
func DailyGain(snap models.SprintSnapshot, today date.Date) Value {
	projected, err := ProjectedCompletion(snap, today).Time()
	if err != nil {
		return Undefined()
	}
	desiredEnd := snap.Sprint.EndDate.AddDays(1).Time
	return Defined(desiredEnd.Sub(projected).Seconds() / float64(NumDays(snap.Sprint)) / secondsPerDay)
}

// IsActive reports whether d falls inside the sprint window.
func IsActive(s models.Sprint, d date.Date) bool {
	return d.Between(s.StartDate, s.EndDate)
}

// IsFinished reports whether the sprint ended before d.
func IsFinished(s models.Sprint, d date.Date) bool {
	return d.After(s.EndDate)
}

// RemainingTasks lists closure tasks that are not finished, in execution order.
func RemainingTasks(snap models.SprintSnapshot) []models.Task {
	var out []models.Task
	for _, t := range snap.Tasks {
		if t.Status != models.StatusFinished {
			out = append(out, t)
		}
	}
	return out
}

// SuggestNextTask returns the first unfinished task in execution order.
func SuggestNextTask(snap models.SprintSnapshot) (models.Task, bool) {
	for _, t := range snap.Tasks {
		if t.Status != models.StatusFinished {
			return t, true
		}
	}
	return models.Task{}, false
}

// WorkerIDs returns the distinct workers assigned to closure tasks.
func WorkerIDs(snap models.SprintSnapshot) []int64 {
	var ids []int64
	for _, t := range snap.Tasks {
		ids = append(ids, t.WorkerIDs...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// WorkerExpectedHours sums the expected hours of every sprint that involves the worker.
func WorkerExpectedHours(snaps []models.SprintSnapshot, workerID int64) float64 {
	var total float64
	for _, snap := range snaps {
		if slices.Contains(WorkerIDs(snap), workerID) {
			total += ExpectedHours(snap)
		}
	}
	return total
}
