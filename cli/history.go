package cli

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"webpconv/failures"
	"webpconv/success"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run", "", "show one run and its failed files")
	limit := fs.Int("limit", 20, "max runs to list (0 = all)")
	prune := fs.Duration("prune", 0, "first delete records older than this (e.g. 720h)")
	jsonOut := fs.Bool("json", false, "print JSON output")

	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	closeHistory, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory()

	if *prune > 0 {
		runs, err := success.CleanupOldRecords(*prune)
		if err != nil {
			return err
		}
		failed, err := failures.CleanupOldRecords(*prune)
		if err != nil {
			return err
		}
		if !*jsonOut {
			fmt.Fprintf(stdout, "Removed %d run records and %d failure records\n", runs, failed)
		}
	}

	if *runID != "" {
		return showRun(*runID, *jsonOut)
	}

	runs, err := success.ListRuns()
	if err != nil {
		return err
	}
	if *limit > 0 && len(runs) > *limit {
		runs = runs[:*limit]
	}
	if *jsonOut {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, mutedStyle.Render("No runs recorded yet."))
		return nil
	}
	fmt.Fprintln(stdout, renderHistory(runs))
	return nil
}

func showRun(id string, jsonOut bool) error {
	record, err := success.GetRun(id)
	if err != nil {
		return err
	}
	failed, err := failures.ListRunFailures(id)
	if err != nil {
		return err
	}
	if record == nil && len(failed) == 0 {
		return fmt.Errorf("run %q not found", id)
	}

	if jsonOut {
		return printJSON(struct {
			Run      *success.RunRecord      `json:"run,omitempty"`
			Failures []failures.FailureRecord `json:"failures"`
		}{record, failed})
	}

	if record != nil {
		fmt.Fprintln(stdout, renderHistory([]success.RunRecord{*record}))
	}
	if len(failed) == 0 {
		fmt.Fprintln(stdout, okStyle.Render("No failed files."))
		return nil
	}
	fmt.Fprintln(stdout, errorStyle.Render("Failed files:"))
	for _, f := range failed {
		fmt.Fprintf(stdout, "  %s: %s\n", f.InputFile, f.Error)
	}
	return nil
}

func renderHistory(runs []success.RunRecord) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("Run", "Finished", "Input", "Total", "Converted", "Skipped", "Failed", "Duration")

	for _, r := range runs {
		t.Row(
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Options.InputFolder,
			strconv.Itoa(r.Summary.Total),
			strconv.Itoa(r.Summary.Converted),
			strconv.Itoa(r.Summary.Skipped),
			strconv.Itoa(r.Summary.Failed),
			r.Summary.Duration().Round(time.Millisecond).String(),
		)
	}
	return t.String()
}
