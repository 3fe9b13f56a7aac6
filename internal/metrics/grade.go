package metrics

import "github.com/levelapp/levelgo/internal/models"

// Distribution counts how many successful verdicts landed on each match
// level. Index i holds the count for match level i.
type Distribution [models.MatchExcellent + 1]int

// ScoreDistribution tallies successful verdicts by match level. Errored
// verdicts are not counted.
func ScoreDistribution(verdicts []models.JudgeVerdict) Distribution {
	var d Distribution
	for _, v := range verdicts {
		if v.Succeeded() {
			d[*v.MatchLevel]++
		}
	}
	return d
}

// Total returns the number of verdicts in the distribution.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// PerformanceGrade maps an average match level onto a letter grade. A nil
// average (no successful verdicts at all) grades as "N/A".
func PerformanceGrade(averageScore *float64) string {
	if averageScore == nil {
		return "N/A"
	}
	switch avg := *averageScore; {
	case avg >= 2.7:
		return "A"
	case avg >= 2.3:
		return "B"
	case avg >= 1.7:
		return "C"
	case avg >= 1.0:
		return "D"
	default:
		return "F"
	}
}
