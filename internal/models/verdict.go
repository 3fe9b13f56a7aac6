package models

import "fmt"

// VerdictStatus is the outcome status of a single judge verdict.
type VerdictStatus string

const (
	VerdictSuccess VerdictStatus = "success"
	VerdictError   VerdictStatus = "error"
)

// Match levels form a fixed discrete quality scale.
const (
	MatchPoor      = 0
	MatchFair      = 1
	MatchGood      = 2
	MatchExcellent = 3
)

// JudgeVerdict is the result of one judge scoring one interaction.
//
// On success MatchLevel is a non-nil integer in [MatchPoor, MatchExcellent].
// On error MatchLevel is nil and Justification carries the error description.
type JudgeVerdict struct {
	MatchLevel    *int           `json:"match_level,omitempty" yaml:"match_level,omitempty"`
	Justification string         `json:"justification" yaml:"justification"`
	Status        VerdictStatus  `json:"status" yaml:"status"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SuccessVerdict builds a success verdict, clamping level into the valid scale.
func SuccessVerdict(level int, justification string) JudgeVerdict {
	if level < MatchPoor {
		level = MatchPoor
	}
	if level > MatchExcellent {
		level = MatchExcellent
	}
	return JudgeVerdict{
		MatchLevel:    &level,
		Justification: justification,
		Status:        VerdictSuccess,
	}
}

// ErrorVerdict builds an error verdict from a failure description.
func ErrorVerdict(format string, args ...any) JudgeVerdict {
	return JudgeVerdict{
		Justification: fmt.Sprintf(format, args...),
		Status:        VerdictError,
	}
}

// Succeeded reports whether the verdict carries a usable match level.
func (v JudgeVerdict) Succeeded() bool {
	return v.Status == VerdictSuccess && v.MatchLevel != nil
}
