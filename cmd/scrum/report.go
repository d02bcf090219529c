package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"scrum/internal/date"
	"scrum/internal/models"
	"scrum/internal/scheduler"
)

var (
	flagToday string
	flagJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report [sprint]",
	Short: "Show sprint progress, burn rates and the burndown",
	Long: `Without arguments report prints one line per sprint. With a sprint id,
name or "id:name" key it prints the full analytics for that sprint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagToday, "today", "", "report as of this date (YYYY-MM-DD)")
	reportCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	today := date.Today()
	if flagToday != "" {
		var err error
		if today, err = date.Parse(flagToday); err != nil {
			return err
		}
	}

	store, _, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		snaps, err := store.SprintSnapshots(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			reports := make([]scheduler.Report, 0, len(snaps))
			for _, snap := range snaps {
				reports = append(reports, scheduler.Analyze(snap, today))
			}
			return writeJSON(out, reports)
		}
		renderSummary(out, snaps, today)
		return nil
	}

	snap, err := store.SprintSnapshot(ctx, models.ParseRef(args[0]))
	if err != nil {
		return err
	}
	report := scheduler.Analyze(snap, today)
	if flagJSON {
		return writeJSON(out, report)
	}
	workers, err := store.ListWorkers(ctx)
	if err != nil {
		return err
	}
	renderReport(out, snap, report, workers)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderSummary prints one line per sprint.
func renderSummary(w io.Writer, snaps []models.SprintSnapshot, today date.Date) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no sprints"))
		return
	}
	for _, snap := range snaps {
		r := scheduler.Analyze(snap, today)
		fmt.Fprintf(w, "%s  %s -> %s  %s  %.2f/%.2fh  gain %s\n",
			titleStyle.Render(r.Sprint.String()),
			r.StartDate, r.EndDate,
			sprintState(r),
			r.CompletedHours, r.ExpectedHours,
			gain(r.DailyGain))
	}
}

// renderReport prints the full analytics of one sprint.
func renderReport(w io.Writer, snap models.SprintSnapshot, r scheduler.Report, workers []models.Worker) {
	names := make(map[int64]string, len(workers))
	for _, wk := range workers {
		names[wk.ID] = wk.Key().String()
	}
	line := func(label, format string, args ...any) {
		fmt.Fprintf(w, "  %s%s\n", labelStyle.Render(label), fmt.Sprintf(format, args...))
	}

	fmt.Fprintf(w, "%s  %s -> %s  %s\n", titleStyle.Render("Sprint "+r.Sprint.String()), r.StartDate, r.EndDate, sprintState(r))
	line("Days", "%d total, %d burned, %d left", r.NumDays, r.DaysBurned, r.DaysLeft)
	line("Hours", "%.2f expected, %.2f completed, %.2f logged so far", r.ExpectedHours, r.CompletedHours, r.HoursLoggedSoFar)
	line("Open estimate", "%.2f", r.ExpectedRemainingHours)
	line("Burn rate", "ideal %s, actual %s, required %s", r.IdealBurn, r.ActualBurn, r.RequiredBurn)
	line("Projection", "%s, daily gain %s", r.ProjectedCompletion, gain(r.DailyGain))
	if r.NextTask != nil {
		line("Next task", "%s", r.NextTask)
	} else {
		line("Next task", "%s", dimStyle.Render("none, everything is finished"))
	}
	if len(r.WorkerIDs) > 0 {
		assigned := make([]string, 0, len(r.WorkerIDs))
		for _, id := range r.WorkerIDs {
			assigned = append(assigned, names[id])
		}
		line("Workers", "%s", strings.Join(assigned, ", "))
	}

	fmt.Fprintln(w, titleStyle.Render("Execution order"))
	for i, t := range snap.Tasks {
		fmt.Fprintf(w, "  %2d. %-24s %-11s %6.2fh\n", i+1, t.Key(), t.Status, t.LengthHours)
	}

	fmt.Fprintln(w, titleStyle.Render("Burndown"))
	for _, p := range r.Burndown {
		remaining := fmt.Sprintf("%7.2f", p.RemainingHours)
		if p.Future {
			remaining = dimStyle.Render(fmt.Sprintf("%7s", "-"))
		}
		fmt.Fprintf(w, "  %s  logged %6.2f  remaining %s  ideal %7.2f\n", p.Date, p.HoursLogged, remaining, p.IdealRemaining)
	}
}

func sprintState(r scheduler.Report) string {
	switch {
	case r.Finished:
		return dimStyle.Render("finished")
	case r.Active:
		return aheadStyle.Render("active")
	default:
		return dimStyle.Render("upcoming")
	}
}

// gain colours the daily gain by sign.
func gain(v scheduler.Value) string {
	f, err := v.Float()
	switch {
	case err != nil:
		return dimStyle.Render(v.String())
	case f < 0:
		return behindStyle.Render(v.String())
	default:
		return aheadStyle.Render(v.String())
	}
}
