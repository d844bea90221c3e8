package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds.
const (
	KindBuildStarted   = "BuildStarted"
	KindPhaseCompleted = "PhaseCompleted"
	KindBuildCompleted = "BuildCompleted"
	KindBuildFailed    = "BuildFailed"
)

// BuildStartedPayload is recorded when a build begins.
type BuildStartedPayload struct {
	Project string `json:"project"`
	Routes  int    `json:"routes"`
	Hooks   int    `json:"hooks"`
}

// PhaseCompletedPayload is recorded after every successful phase.
type PhaseCompletedPayload struct {
	Phase      string `json:"phase"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildCompletedPayload is recorded when a build finishes without error.
type BuildCompletedPayload struct {
	Outcome    string `json:"outcome"`
	Files      int    `json:"files"`
	Pages      int    `json:"pages"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildFailedPayload is recorded when a phase aborts the build.
type BuildFailedPayload struct {
	Phase      string `json:"phase"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

func newRecord(buildID, kind string, payload any) (Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Record{BuildID: buildID, Kind: kind, At: time.Now(), Payload: raw}, nil
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, p BuildStartedPayload) (Record, error) {
	return newRecord(buildID, KindBuildStarted, p)
}

// NewPhaseCompleted creates a PhaseCompleted event.
func NewPhaseCompleted(buildID, phase string, d time.Duration) (Record, error) {
	return newRecord(buildID, KindPhaseCompleted, PhaseCompletedPayload{Phase: phase, DurationMS: d.Milliseconds()})
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, p BuildCompletedPayload) (Record, error) {
	return newRecord(buildID, KindBuildCompleted, p)
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID string, p BuildFailedPayload) (Record, error) {
	return newRecord(buildID, KindBuildFailed, p)
}
