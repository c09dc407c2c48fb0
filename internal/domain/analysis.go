package domain

import (
	"time"

	"github.com/iconidentify/teardown/pkg/teardown"
)

// AnalysisID is a unique identifier for one teardown run.
type AnalysisID string

// String returns the string representation of the AnalysisID.
func (id AnalysisID) String() string {
	return string(id)
}

// AnalysisStatus represents the state of a run.
type AnalysisStatus string

const (
	AnalysisStatusRunning   AnalysisStatus = "running"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// Analysis records one run: what was sent, to whom, and what came back.
type Analysis struct {
	ID        AnalysisID
	Provider  string
	Model     string
	FileName  string
	MIMEType  string
	SizeBytes int64
	Status    AnalysisStatus
	Error     string
	Warnings  []string
	Result    *teardown.Result

	StartedAt   time.Time
	CompletedAt time.Time
}

// NewAnalysis creates a running analysis.
func NewAnalysis(id AnalysisID, providerName, model string) *Analysis {
	return &Analysis{
		ID:        id,
		Provider:  providerName,
		Model:     model,
		Status:    AnalysisStatusRunning,
		StartedAt: time.Now(),
	}
}

// MarkCompleted stores the parsed result.
func (a *Analysis) MarkCompleted(result teardown.Result) {
	a.Status = AnalysisStatusCompleted
	a.Result = &result
	a.CompletedAt = time.Now()
}

// MarkFailed records the failure message.
func (a *Analysis) MarkFailed(err string) {
	a.Status = AnalysisStatusFailed
	a.Error = err
	a.CompletedAt = time.Now()
}

// AddWarning appends a non-fatal notice shown alongside the result.
func (a *Analysis) AddWarning(msg string) {
	a.Warnings = append(a.Warnings, msg)
}

// Duration returns how long the run took, or has taken so far.
func (a *Analysis) Duration() time.Duration {
	if a.CompletedAt.IsZero() {
		return time.Since(a.StartedAt)
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

// IsDone reports whether the run has finished either way.
func (a *Analysis) IsDone() bool {
	return a.Status == AnalysisStatusCompleted || a.Status == AnalysisStatusFailed
}
