package eventstore

import (
	"context"
	"time"
)

const (
	statusRunning = "running"
)

// BuildSummary is the read model of one build reconstructed from its events.
type BuildSummary struct {
	BuildID     string                   `json:"build_id"`
	Project     string                   `json:"project"`
	Status      string                   `json:"status"` // running, or the final outcome
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	Duration    time.Duration            `json:"duration"`
	Files       int                      `json:"files"`
	Pages       int                      `json:"pages"`
	FailedPhase string                   `json:"failed_phase,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Phases      map[string]time.Duration `json:"phases,omitempty"`
}

// Summarize folds the events of a single build into a summary. Events with
// undecodable payloads are skipped.
func Summarize(events []Record) BuildSummary {
	var s BuildSummary
	s.Status = statusRunning
	for _, e := range events {
		if s.BuildID == "" {
			s.BuildID = e.BuildID
			s.StartedAt = e.At
		}
		switch e.Kind {
		case KindBuildStarted:
			var p BuildStartedPayload
			if e.Decode(&p) == nil {
				s.Project = p.Project
				s.StartedAt = e.At
			}
		case KindPhaseCompleted:
			var p PhaseCompletedPayload
			if e.Decode(&p) == nil {
				if s.Phases == nil {
					s.Phases = map[string]time.Duration{}
				}
				s.Phases[p.Phase] = time.Duration(p.DurationMS) * time.Millisecond
			}
		case KindBuildCompleted:
			var p BuildCompletedPayload
			if e.Decode(&p) == nil {
				s.Status = p.Outcome
				s.Files = p.Files
				s.Pages = p.Pages
				s.Duration = time.Duration(p.DurationMS) * time.Millisecond
				ts := e.At
				s.CompletedAt = &ts
			}
		case KindBuildFailed:
			var p BuildFailedPayload
			if e.Decode(&p) == nil {
				s.Status = p.Outcome
				s.FailedPhase = p.Phase
				s.Error = p.Error
				s.Duration = time.Duration(p.DurationMS) * time.Millisecond
				ts := e.At
				s.CompletedAt = &ts
			}
		}
	}
	return s
}

// History returns summaries of the last n builds, newest first.
func History(ctx context.Context, store Store, n int) ([]BuildSummary, error) {
	ids, err := store.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]BuildSummary, 0, len(ids))
	for _, id := range ids {
		events, err := store.Events(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(events))
	}
	return out, nil
}
