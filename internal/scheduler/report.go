package scheduler

import (
	"scrum/internal/date"
	"scrum/internal/models"
)

// BurndownPoint is one sprint day of the burndown series.
type BurndownPoint struct {
	Date           date.Date `json:"date"`
	HoursLogged    float64   `json:"hours_logged"`
	RemainingHours float64   `json:"remaining_hours"`
	IdealRemaining float64   `json:"ideal_remaining"`
	// Future marks days after today; their remaining hours are not yet known.
	Future         bool      `json:"future"`
}

// Report bundles every derived figure for one sprint as of today.
type Report struct {
	Sprint                 models.Key      `json:"sprint"`
	StartDate              date.Date       `json:"start_date"`
	EndDate                date.Date       `json:"end_date"`
	Today                  date.Date       `json:"today"`
	Active                 bool            `json:"active"`
	Finished               bool            `json:"finished"`
	NumDays                int             `json:"num_days"`
	DaysBurned             int             `json:"days_burned"`
	DaysLeft               int             `json:"days_left"`
	ExpectedHours          float64         `json:"expected_hours"`
	ExpectedRemainingHours float64         `json:"expected_remaining_hours"`
	CompletedHours         float64         `json:"completed_hours"`
	HoursLoggedSoFar       float64         `json:"hours_logged_so_far"`
	IdealBurn              Value           `json:"ideal_burn"`
	ActualBurn             Value           `json:"actual_burn"`
	RequiredBurn           Value           `json:"required_burn"`
	ProjectedCompletion    Instant         `json:"projected_completion"`
	DailyGain              Value           `json:"daily_gain"`
	Order                  []models.Key    `json:"order"`
	NextTask               *models.Key     `json:"next_task"`
	WorkerIDs              []int64         `json:"worker_ids"`
	Burndown               []BurndownPoint `json:"burndown"`
}

// Analyze computes the full report for snap as of today.
func Analyze(snap models.SprintSnapshot, today date.Date) Report {
	s := snap.Sprint
	r := Report{
		Sprint:                 s.Key(),
		StartDate:              s.StartDate,
		EndDate:                s.EndDate,
		Today:                  today,
		Active:                 IsActive(s, today),
		Finished:               IsFinished(s, today),
		NumDays:                NumDays(s),
		DaysBurned:             DaysBurned(s, today),
		DaysLeft:               DaysLeft(s, today),
		ExpectedHours:          ExpectedHours(snap),
		ExpectedRemainingHours: ExpectedRemainingHours(snap),
		CompletedHours:         CompletedHours(snap),
		HoursLoggedSoFar:       HoursLoggedSoFar(snap, today),
		IdealBurn:              IdealBurn(snap),
		ActualBurn:             ActualBurn(snap, today),
		RequiredBurn:           RequiredBurn(snap, today),
		ProjectedCompletion:    ProjectedCompletion(snap, today),
		DailyGain:              DailyGain(snap, today),
		WorkerIDs:              WorkerIDs(snap),
		Burndown:               Burndown(snap, today),
	}
	for _, t := range snap.Tasks {
		r.Order = append(r.Order, t.Key())
	}
	if next, ok := SuggestNextTask(snap); ok {
		key := next.Key()
		r.NextTask = &key
	}
	return r
}

// Burndown returns one point per sprint day. Remaining hours after today are
// reported as zero with Future set.
func Burndown(snap models.SprintSnapshot, today date.Date) []BurndownPoint {
	days := NumDays(snap.Sprint)
	if days <= 0 {
		return nil
	}
	expected := ExpectedHours(snap)

	perDay := make([]float64, days)
	for _, e := range EntriesInSprint(snap) {
		perDay[snap.Sprint.StartDate.DaysUntil(e.Date)] += e.Hours
	}

	points := make([]BurndownPoint, 0, days)
	remaining := expected
	for i := 0; i < days; i++ {
		d := snap.Sprint.StartDate.AddDays(i)
		remaining -= perDay[i]
		p := BurndownPoint{
			Date:           d,
			HoursLogged:    perDay[i],
			RemainingHours: remaining,
			IdealRemaining: expected * (1 - float64(i+1)/float64(days)),
		}
		if d.After(today) {
			p.Future = true
			p.RemainingHours = 0
		}
		points = append(points, p)
	}
	return points
}
