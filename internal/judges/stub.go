package judges

import (
	"context"
	"sync"

	"github.com/levelapp/levelgo/internal/models"
)

type stubParams struct {
	MatchLevel    int    `mapstructure:"match_level"`
	Justification string `mapstructure:"justification"`
}

// StubJudge returns a fixed verdict for every sample. It exists for dry runs
// and tests; the scripted variants below let tests drive error and retry
// behavior deterministically.
type StubJudge struct {
	name          string
	level         int
	justification string

	mu      sync.Mutex
	scripts []func(Sample) models.JudgeVerdict
	calls   int
}

// NewStubJudge builds a judge that always answers with the given level.
func NewStubJudge(name string, level int, justification string) *StubJudge {
	if justification == "" {
		justification = "stubbed verdict"
	}
	return &StubJudge{name: name, level: level, justification: justification}
}

// Script appends a canned response for the next call. Once all scripted
// responses are consumed the judge falls back to its fixed verdict.
func (s *StubJudge) Script(fn func(Sample) models.JudgeVerdict) *StubJudge {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, fn)
	return s
}

// Calls reports how many times Evaluate ran.
func (s *StubJudge) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubJudge) Name() string { return s.name }

func (s *StubJudge) Kind() Kind { return KindStub }

// Evaluate implements [Judge].
func (s *StubJudge) Evaluate(_ context.Context, sample Sample) models.JudgeVerdict {
	s.mu.Lock()
	s.calls++
	var script func(Sample) models.JudgeVerdict
	if len(s.scripts) > 0 {
		script = s.scripts[0]
		s.scripts = s.scripts[1:]
	}
	s.mu.Unlock()

	if script != nil {
		return script(sample)
	}
	if sample.GeneratedText == "" {
		verdict, _ := scoreEmptyReply(sample)
		return verdict
	}
	return models.SuccessVerdict(s.level, s.justification)
}
