package webapi

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/levelapp/levelgo/internal/export"
)

// ErrRunNotFound is returned when a run ID does not match any stored run.
var ErrRunNotFound = errors.New("run not found")

// RunStore provides access to completed evaluation runs.
type RunStore interface {
	// ListRuns returns all runs, sorted by the given field and order.
	ListRuns(sortField, order string) ([]RunSummary, error)
	// GetRun returns a single run's full report.
	GetRun(id string) (*export.Report, error)
	// Summary returns aggregate metrics across all runs.
	Summary() (*SummaryResponse, error)
	// Add records a freshly completed run under the given ID.
	Add(id string, report *export.Report)
}

// FileStore reads exported report JSON files from a results directory and
// keeps runs recorded at runtime in memory alongside them. The run ID is the
// report file name without extension.
type FileStore struct {
	dir string

	mu     sync.RWMutex
	runs   map[string]*export.Report
	loaded bool
}

// NewFileStore creates a FileStore over dir. The directory is read lazily
// on first access and may not exist yet.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		runs: make(map[string]*export.Report),
	}
}

func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.loaded || fs.dir == "" {
		fs.loaded = true
		return nil
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			continue
		}
		var report export.Report
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if _, exists := fs.runs[id]; !exists {
			fs.runs[id] = &report
		}
	}
	fs.loaded = true
	return nil
}

// Add records a completed run in memory.
func (fs *FileStore) Add(id string, report *export.Report) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.runs[id] = report
}

// ListRuns returns summaries of all known runs. sortField may be "timestamp",
// "score", or "success_rate"; order may be "asc" or "desc" (default desc by
// timestamp).
func (fs *FileStore) ListRuns(sortField, order string) ([]RunSummary, error) {
	if err := fs.load(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	summaries := make([]RunSummary, 0, len(fs.runs))
	for id, report := range fs.runs {
		summaries = append(summaries, summarize(id, report))
	}
	fs.mu.RUnlock()

	sortRuns(summaries, sortField, order)
	return summaries, nil
}

// GetRun returns the full report for one run.
func (fs *FileStore) GetRun(id string) (*export.Report, error) {
	if err := fs.load(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	report, ok := fs.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return report, nil
}

// Summary aggregates KPIs across all stored runs.
func (fs *FileStore) Summary() (*SummaryResponse, error) {
	runs, err := fs.ListRuns("", "")
	if err != nil {
		return nil, err
	}

	resp := &SummaryResponse{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return resp, nil
	}

	scored := 0
	for _, r := range runs {
		resp.TotalScenarios += r.Scenarios
		resp.AvgSuccessRate += r.SuccessRate
		if r.AverageScore != nil {
			resp.AvgScore += *r.AverageScore
			scored++
		}
	}
	resp.AvgSuccessRate /= float64(len(runs))
	if scored > 0 {
		resp.AvgScore /= float64(scored)
	}
	return resp, nil
}

func summarize(id string, report *export.Report) RunSummary {
	return RunSummary{
		ID:           id,
		BatchID:      report.Metadata.BatchID,
		TestName:     report.Metadata.TestName,
		Model:        report.Metadata.ModelUsed,
		Grade:        report.Summary.PerformanceGrade,
		AverageScore: report.Metadata.AverageScore,
		SuccessRate:  report.Metadata.SuccessRate,
		Scenarios:    len(report.Scenarios),
		Duration:     report.Metadata.DurationSeconds,
		Timestamp:    report.Metadata.Timestamp,
	}
}

func sortRuns(runs []RunSummary, sortField, order string) {
	less := func(i, j int) bool {
		switch sortField {
		case "score":
			si, sj := -1.0, -1.0
			if runs[i].AverageScore != nil {
				si = *runs[i].AverageScore
			}
			if runs[j].AverageScore != nil {
				sj = *runs[j].AverageScore
			}
			return si < sj
		case "success_rate":
			return runs[i].SuccessRate < runs[j].SuccessRate
		default:
			return runs[i].Timestamp.Before(runs[j].Timestamp)
		}
	}

	if order == "asc" {
		sort.SliceStable(runs, less)
	} else {
		sort.SliceStable(runs, func(i, j int) bool { return less(j, i) })
	}
}
