package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/export"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
	"github.com/levelapp/levelgo/internal/orchestration"
	"github.com/levelapp/levelgo/internal/projectconfig"
	"github.com/levelapp/levelgo/internal/validation"
)

// RequestError is an evaluation failure attributable to the request. The
// handler layer maps it onto the HTTP status.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string { return e.Detail }

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

// Service runs batch evaluations on behalf of the HTTP API.
type Service struct {
	cfg      *projectconfig.ProjectConfig
	exporter *export.Exporter
	store    RunStore
}

func NewService(cfg *projectconfig.ProjectConfig, exporter *export.Exporter, store RunStore) *Service {
	return &Service{cfg: cfg, exporter: exporter, store: store}
}

// Evaluate validates the request, runs the batch, exports the report, and
// records the run in the store. Returns the report and its run ID.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*export.Report, string, error) {
	if len(req.TestBatch) == 0 {
		return nil, "", badRequest("test_batch is required")
	}
	if violations := validation.ValidateBatchJSON(req.TestBatch); len(violations) > 0 {
		return nil, "", badRequest("invalid test_batch: %s", strings.Join(violations, "; "))
	}

	var batch models.TestBatch
	if err := json.Unmarshal(req.TestBatch, &batch); err != nil {
		return nil, "", badRequest("invalid test_batch: %v", err)
	}

	judgeList, err := s.buildJudges()
	if err != nil {
		return nil, "", err
	}

	runCfg := s.runConfig(req)
	coordinator := orchestration.NewCoordinator(runCfg, judgeList, s.buildDriver(req))

	result, err := coordinator.Run(ctx, &batch)
	if result == nil && err != nil {
		return nil, "", badRequest("%v", err)
	}

	report := &export.Report{
		Metadata:  result.Metadata,
		Summary:   export.Summarize(result),
		Scenarios: result.Scenarios,
	}

	runID := fmt.Sprintf("%s-%s", result.Metadata.BatchID, result.Metadata.Timestamp.Format("20060102-150405"))
	if s.exporter != nil {
		path, exportErr := s.exporter.WriteJSON(result)
		if exportErr != nil {
			return nil, "", exportErr
		}
		runID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if s.store != nil {
		s.store.Add(runID, report)
	}
	return report, runID, nil
}

func (s *Service) buildJudges() ([]judges.Judge, error) {
	if len(s.cfg.Judges) == 0 {
		return nil, &RequestError{Status: http.StatusInternalServerError, Detail: "no judges configured for this project"}
	}

	var opts []judges.Option
	if s.cfg.Agent.RateLimit > 0 {
		opts = append(opts, judges.WithRateLimiter(rate.NewLimiter(rate.Limit(s.cfg.Agent.RateLimit), 1)))
	}

	list := make([]judges.Judge, 0, len(s.cfg.Judges))
	for _, jc := range s.cfg.Judges {
		j, err := judges.Create(judges.Kind(jc.Kind), jc.Name, jc.Parameters, opts...)
		if err != nil {
			return nil, &RequestError{
				Status: http.StatusInternalServerError,
				Detail: fmt.Sprintf("judge %q: %v", jc.Kind, err),
			}
		}
		list = append(list, j)
	}
	return list, nil
}

func (s *Service) buildDriver(req EvaluateRequest) driver.Driver {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = s.cfg.Agent.Endpoint
	}
	if endpoint == "" {
		return nil
	}

	dcfg := driver.HTTPConfig{
		Endpoint:   endpoint,
		TimeoutSec: s.cfg.Agent.Timeout,
	}
	if s.cfg.Agent.RateLimit > 0 {
		dcfg.Limiter = rate.NewLimiter(rate.Limit(s.cfg.Agent.RateLimit), 1)
	}
	drv, err := driver.NewHTTPDriver(dcfg)
	if err != nil {
		return nil
	}
	return drv
}

func (s *Service) runConfig(req EvaluateRequest) orchestration.Config {
	cfg := orchestration.Config{
		TestName:        req.TestName,
		ModelID:         req.ModelID,
		Attempts:        req.Attempts,
		ScenarioWorkers: s.cfg.Defaults.Workers,
	}
	if cfg.TestName == "" {
		cfg.TestName = fmt.Sprintf("api-run-%s", time.Now().UTC().Format("20060102-150405"))
	}
	if cfg.ModelID == "" {
		cfg.ModelID = s.cfg.Defaults.Model
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = s.cfg.Defaults.Attempts
	}
	if req.CarryContext != nil {
		cfg.CarryContext = *req.CarryContext
	} else if s.cfg.Defaults.CarryContext != nil {
		cfg.CarryContext = *s.cfg.Defaults.CarryContext
	}
	return cfg
}
