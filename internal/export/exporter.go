package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/levelapp/levelgo/internal/metrics"
	"github.com/levelapp/levelgo/internal/models"
)

// Report is the full exported document: the batch result plus a derived
// summary block.
type Report struct {
	Metadata  models.ScenarioMetadata `json:"scenario_metadata"`
	Summary   Summary                 `json:"summary"`
	Scenarios []models.ScenarioResult `json:"scenarios"`
}

// Summary carries the derived statistics for a batch run.
type Summary struct {
	PerformanceGrade  string         `json:"performance_grade"`
	ScoreDistribution map[string]int `json:"score_distribution"`
	ScoreStdDev       float64        `json:"score_std_dev"`
	// ScoreCI95Low/High bound the mean match level at 95% confidence; both
	// collapse to the mean when fewer than two verdicts succeeded.
	ScoreCI95Low       float64 `json:"score_ci95_low"`
	ScoreCI95High      float64 `json:"score_ci95_high"`
	TotalVerdicts      int     `json:"total_verdicts"`
	SuccessfulVerdicts int     `json:"successful_verdicts"`
	ErroredVerdicts    int     `json:"errored_verdicts"`
}

var scoreLabels = [...]string{"poor", "moderate", "good", "excellent"}

// Summarize derives the summary block from a batch result.
func Summarize(result *models.BatchResult) Summary {
	verdicts := result.AllVerdicts()
	dist := metrics.ScoreDistribution(verdicts)

	levels := metrics.MatchLevels(dist)
	ciLow, ciHigh := metrics.ConfidenceInterval95(levels)

	s := Summary{
		PerformanceGrade:  metrics.PerformanceGrade(result.Metadata.AverageScore),
		ScoreDistribution: make(map[string]int, len(scoreLabels)),
		ScoreStdDev:       metrics.StdDev(levels),
		ScoreCI95Low:      ciLow,
		ScoreCI95High:     ciHigh,
		TotalVerdicts:     len(verdicts),
	}
	for level, label := range scoreLabels {
		s.ScoreDistribution[label] = dist[level]
	}
	s.SuccessfulVerdicts = dist.Total()
	s.ErroredVerdicts = len(verdicts) - dist.Total()
	return s
}

// Exporter writes batch results to disk.
type Exporter struct {
	// Dir is the output directory. Created on demand.
	Dir string

	// now is swapped in tests for stable filenames.
	now func() time.Time
}

func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir, now: time.Now}
}

// WriteJSON writes the result document with its derived summary as an
// indented JSON file named after the batch and run timestamp. Returns the
// path of the written file.
func (e *Exporter) WriteJSON(result *models.BatchResult) (string, error) {
	report := Report{
		Metadata:  result.Metadata,
		Summary:   Summarize(result),
		Scenarios: result.Scenarios,
	}

	path := e.outputPath(result, "json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}

func (e *Exporter) outputPath(result *models.BatchResult, ext string) string {
	name := result.Metadata.BatchID
	if name == "" {
		name = "batch"
	}
	stamp := e.timestamp().Format("20060102-150405")
	return filepath.Join(e.Dir, fmt.Sprintf("%s-%s.%s", name, stamp, ext))
}

func (e *Exporter) timestamp() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
