package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mergeq-sim/mergeq-sim/sim"
)

// tableHeaders are the column titles of the sweep table.
var tableHeaders = []string{
	"Q Size",
	"Throughput (PR/h)",
	"Avg Time to Merge (m)",
	"Median Time to Merge (m)",
	"PRs Lost (PR/h)",
}

// RenderTable writes the configuration echo followed by a markdown table with
// one row per queue size, values rounded to one decimal place.
func RenderTable(w io.Writer, cfg sim.Config, results []*sim.TrialResult) error {
	if _, err := fmt.Fprintf(w, "\nJob duration : %s\nJob failure probability : %v\nJobs waiting to enter the queue probability : %v\nJobs waiting to enter the queue : %d\nSimulation duration : %s\n\n",
		formatMinutes(cfg.JobDuration.Minutes()), cfg.FailureProbability, cfg.JobsWaitingToEnterProbability,
		cfg.JobsWaitingToEnter, formatHours(cfg.TargetDuration().Hours())); err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(tableHeaders...)
	for _, r := range results {
		t.Row(
			strconv.Itoa(r.Capacity),
			round1(r.Throughput),
			round1(r.MeanWait),
			round1(r.MedianWait),
			round1(r.LossRate),
		)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func round1(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64) + "m"
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}
