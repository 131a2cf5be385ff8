package output

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the machine-readable record of one run.
type Summary struct {
	RunID       string    `yaml:"run_id"`
	Interpreter string    `yaml:"interpreter"`
	Sources     string    `yaml:"sources"`
	StartedAt   time.Time `yaml:"started_at"`
	Duration    string    `yaml:"duration"`
	Status      string    `yaml:"status"`
	Passed      []string  `yaml:"passed"`
	Failure     *Failure  `yaml:"failure,omitempty"`
}

// Failure describes the error that ended a failed run.
type Failure struct {
	Example string `yaml:"example,omitempty"`
	Message string `yaml:"message"`
}

// NewSummary starts a summary for a run.
func NewSummary(runID, interpreter, sources string) *Summary {
	return &Summary{
		RunID:       runID,
		Interpreter: interpreter,
		Sources:     sources,
		StartedAt:   time.Now().UTC(),
		Passed:      []string{},
	}
}

// Finish records the outcome. failedExample may be empty when the error is
// not attributable to a single example.
func (s *Summary) Finish(passed []string, failedExample string, err error) {
	s.Duration = time.Since(s.StartedAt).Round(time.Millisecond).String()
	s.Passed = append(s.Passed[:0], passed...)
	if err == nil {
		s.Status = "pass"
		s.Failure = nil
		return
	}
	s.Status = "fail"
	s.Failure = &Failure{Example: failedExample, Message: err.Error()}
}

// WriteFile writes the summary as YAML.
func (s *Summary) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}
