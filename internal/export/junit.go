package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/levelapp/levelgo/internal/metrics"
	"github.com/levelapp/levelgo/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one batch run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one scenario.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure marks a scenario that ran but did not evaluate cleanly.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError marks a scenario that could not be evaluated at all.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit renders a batch result as JUnit XML, one testcase per
// scenario. CI systems can then surface agent outages and judge errors as
// test failures without understanding the native report format.
func ConvertToJUnit(result *models.BatchResult) *JUnitTestSuites {
	md := result.Metadata

	suite := JUnitTestSuite{
		Name:      suiteName(md),
		Tests:     len(result.Scenarios),
		Time:      md.DurationSeconds,
		Timestamp: md.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "model", Value: md.ModelUsed},
			{Name: "evaluator", Value: md.EvaluatorType},
			{Name: "grade", Value: metrics.PerformanceGrade(md.AverageScore)},
			{Name: "success_rate", Value: fmt.Sprintf("%.2f", md.SuccessRate)},
		},
	}

	for i := range result.Scenarios {
		tc := convertScenario(md.BatchID, &result.Scenarios[i])
		if tc.Error != nil {
			suite.Errors++
		} else if tc.Failure != nil {
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func suiteName(md models.ScenarioMetadata) string {
	if md.TestName != "" {
		return md.TestName
	}
	return md.BatchID
}

func convertScenario(batchID string, sc *models.ScenarioResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      scenarioDisplayName(sc),
		Classname: batchID,
		Time:      sc.AvgExecutionTime,
	}

	switch {
	case sc.ConfigError != "":
		tc.Error = &JUnitError{
			Message: sc.ConfigError,
			Type:    "ConfigError",
		}
	case allAttemptsFailed(sc.Attempts):
		tc.Error = &JUnitError{
			Message: fmt.Sprintf("all %d attempts failed", len(sc.Attempts)),
			Type:    "AgentError",
			Body:    firstErrorDetail(sc.Attempts),
		}
	case sc.ErroredVerdicts > 0 || anyAttemptDegraded(sc.Attempts):
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%d errored verdicts, score=%s", sc.ErroredVerdicts, scoreValue(sc.AverageScore)),
			Type:    "PartialEvaluation",
			Body:    firstErrorDetail(sc.Attempts),
		}
	}

	return tc
}

func scenarioDisplayName(sc *models.ScenarioResult) string {
	if sc.Name != "" {
		return sc.Name
	}
	return sc.ScenarioID
}

func scoreValue(avg *float64) string {
	if avg == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *avg)
}

func allAttemptsFailed(attempts []models.Attempt) bool {
	if len(attempts) == 0 {
		return false
	}
	for _, a := range attempts {
		if a.Status != models.AttemptFailed {
			return false
		}
	}
	return true
}

func anyAttemptDegraded(attempts []models.Attempt) bool {
	for _, a := range attempts {
		if a.Status != models.AttemptSuccess {
			return true
		}
	}
	return false
}

// firstErrorDetail pulls the first errored verdict justification so the CI
// log shows a concrete cause, not just a count.
func firstErrorDetail(attempts []models.Attempt) string {
	for i := range attempts {
		for _, v := range attempts[i].Verdicts() {
			if !v.Succeeded() {
				return v.Justification
			}
		}
	}
	return ""
}

// WriteJUnit writes the result as a JUnit XML file next to the JSON export.
// Returns the path of the written file.
func (e *Exporter) WriteJUnit(result *models.BatchResult) (string, error) {
	suites := ConvertToJUnit(result)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encode junit report: %w", err)
	}

	path := e.outputPath(result, "xml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(xml.Header), data...), 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}
