package webapi

import (
	"encoding/json"
	"time"
)

// EvaluateRequest is the body of POST /api/evaluate. TestBatch carries the
// batch definition inline; the remaining fields override project defaults
// for this run only.
type EvaluateRequest struct {
	TestBatch    json.RawMessage `json:"test_batch"`
	Endpoint     string          `json:"endpoint,omitempty"`
	ModelID      string          `json:"model_id,omitempty"`
	Attempts     int             `json:"attempts,omitempty"`
	TestName     string          `json:"test_name,omitempty"`
	CarryContext *bool           `json:"carry_context,omitempty"`
}

// RunSummary is the API response for a single stored run.
type RunSummary struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	TestName     string    `json:"test_name,omitempty"`
	Model        string    `json:"model"`
	Grade        string    `json:"grade"`
	AverageScore *float64  `json:"average_score"`
	SuccessRate  float64   `json:"success_rate"`
	Scenarios    int       `json:"scenarios"`
	Duration     float64   `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

// SummaryResponse is the aggregate KPI response across all stored runs.
type SummaryResponse struct {
	TotalRuns      int     `json:"total_runs"`
	TotalScenarios int     `json:"total_scenarios"`
	AvgSuccessRate float64 `json:"avg_success_rate"`
	AvgScore       float64 `json:"avg_score"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors. Detail is a human-readable message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
