package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/levelapp/levelgo/internal/models"
)

var csvHeader = []string{
	"scenario_id",
	"scenario_name",
	"attempt",
	"interaction_id",
	"user_message",
	"agent_reply",
	"reference_reply",
	"judge",
	"status",
	"match_level",
	"justification",
}

// WriteCSV flattens every verdict in the result into one CSV row per
// (interaction, judge) pair. Returns the path of the written file.
func (e *Exporter) WriteCSV(result *models.BatchResult) (string, error) {
	path := e.outputPath(result, "csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("export: write header: %w", err)
	}

	for _, sc := range result.Scenarios {
		for _, attempt := range sc.Attempts {
			for _, in := range attempt.Interactions {
				for _, judge := range sortedJudges(in.EvaluationResults) {
					v := in.EvaluationResults[judge]
					level := ""
					if v.MatchLevel != nil {
						level = strconv.Itoa(*v.MatchLevel)
					}
					row := []string{
						sc.ScenarioID,
						sc.Name,
						strconv.Itoa(attempt.AttemptNumber),
						in.ID,
						in.UserMessage,
						in.AgentReply,
						in.ReferenceReply,
						judge,
						string(v.Status),
						level,
						v.Justification,
					}
					if err := w.Write(row); err != nil {
						return "", fmt.Errorf("export: write row: %w", err)
					}
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export: flush %s: %w", path, err)
	}
	return path, nil
}

func sortedJudges(verdicts map[string]models.JudgeVerdict) []string {
	names := make([]string, 0, len(verdicts))
	for name := range verdicts {
		names = append(names, name)
	}
	// deterministic row order across runs
	sort.Strings(names)
	return names
}
