package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/levelapp/levelgo/internal/export"
	"github.com/levelapp/levelgo/internal/models"
)

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *score)
}

// FormatBatchReport renders the run summary and a per-scenario table for
// terminal output.
func FormatBatchReport(result *models.BatchResult) string {
	var b strings.Builder

	summary := export.Summarize(result)
	meta := result.Metadata

	b.WriteString("\n=== Batch Results ===\n\n")
	b.WriteString(fmt.Sprintf("Batch:        %s\n", meta.BatchID))
	if meta.TestName != "" {
		b.WriteString(fmt.Sprintf("Test:         %s\n", meta.TestName))
	}
	b.WriteString(fmt.Sprintf("Model:        %s\n", meta.ModelUsed))
	b.WriteString(fmt.Sprintf("Judges:       %s\n", meta.EvaluatorType))
	b.WriteString(fmt.Sprintf("Grade:        %s\n", summary.PerformanceGrade))
	b.WriteString(fmt.Sprintf("Avg score:    %s\n", formatScore(meta.AverageScore)))
	b.WriteString(fmt.Sprintf("Success rate: %.2f%%\n", meta.SuccessRate))
	b.WriteString(fmt.Sprintf("Duration:     %s\n", formatDuration(time.Duration(meta.DurationSeconds*float64(time.Second)))))

	b.WriteString(fmt.Sprintf("\nVerdicts: %d total, %d scored, %d errored\n",
		summary.TotalVerdicts, summary.SuccessfulVerdicts, summary.ErroredVerdicts))
	b.WriteString(fmt.Sprintf("Distribution: poor=%d moderate=%d good=%d excellent=%d\n\n",
		summary.ScoreDistribution["poor"],
		summary.ScoreDistribution["moderate"],
		summary.ScoreDistribution["good"],
		summary.ScoreDistribution["excellent"]))

	b.WriteString(formatScenarioTable(result.Scenarios))
	return b.String()
}

func formatScenarioTable(scenarios []models.ScenarioResult) string {
	header := []string{"Scenario", "Attempts", "Score", "Errors", "Avg Time"}

	rows := make([][]string, 0, len(scenarios))
	for _, sc := range scenarios {
		name := sc.ScenarioID
		if sc.Name != "" {
			name = fmt.Sprintf("%s (%s)", sc.Name, sc.ScenarioID)
		}
		if sc.ConfigError != "" {
			rows = append(rows, []string{name, "-", "-", "-", "invalid: " + sc.ConfigError})
			continue
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", len(sc.Attempts)),
			formatScore(sc.AverageScore),
			fmt.Sprintf("%d", sc.ErroredVerdicts),
			formatDuration(time.Duration(sc.AvgExecutionTime * float64(time.Second))),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			if i < len(cells)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}

	writeRow(header)
	for i, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		if i < len(widths)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
