package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/noise/internal/version"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Report file names inside the state directory.
const (
	ReportJSON = "build-report.json"
	ReportText = "build-report.txt"
)

// BuildReport captures what one build did.
type BuildReport struct {
	SchemaVersion   int
	BuildID         string
	Project         string
	Start           time.Time
	End             time.Time
	Errors          []error
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	FailedStage     StageName
	Routes          int
	Files           int
	StaticFiles     int
	RenderedPages   int
	Outcome         BuildOutcome
	Version         string
}

func newBuildReport(buildID, project string) *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		BuildID:         buildID,
		Project:         project,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		Version:         version.Version,
	}
}

func (r *BuildReport) recordFailure(se *StageError) {
	r.Errors = append(r.Errors, se)
	r.StageErrorKinds[se.Stage] = se.Kind
	r.FailedStage = se.Stage
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// Duration is the wall time between Start and End.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// DeriveOutcome sets Outcome from the recorded errors.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) == 0 {
		r.Outcome = OutcomeSuccess
		return
	}
	for _, e := range r.Errors {
		var se *StageError
		if errors.As(e, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	r.Outcome = OutcomeFailed
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("build=%s routes=%d files=%d static=%d rendered=%d duration=%s errors=%d outcome=%s",
		r.BuildID, r.Routes, r.Files, r.StaticFiles, r.RenderedPages,
		r.Duration().Truncate(time.Millisecond), len(r.Errors), string(r.Outcome))
}

// Persist writes the report atomically into dir as JSON and as a one-line
// text summary.
func (r *BuildReport) Persist(dir string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, ReportJSON), jb); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, ReportText), []byte(r.Summary()+"\n"))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// BuildReportSerializable mirrors BuildReport with string errors for JSON output.
type BuildReportSerializable struct {
	SchemaVersion   int                      `json:"schema_version"`
	BuildID         string                   `json:"build_id"`
	Project         string                   `json:"project"`
	Start           time.Time                `json:"start"`
	End             time.Time                `json:"end"`
	Errors          []string                 `json:"errors"`
	StageDurations  map[string]time.Duration `json:"stage_durations"`
	StageErrorKinds map[string]string        `json:"stage_error_kinds"`
	FailedStage     string                   `json:"failed_stage,omitempty"`
	Routes          int                      `json:"routes"`
	Files           int                      `json:"files"`
	StaticFiles     int                      `json:"static_files"`
	RenderedPages   int                      `json:"rendered_pages"`
	Outcome         string                   `json:"outcome"`
	Version         string                   `json:"version,omitempty"`
}

// SanitizedCopy converts the report for JSON encoding.
func (r *BuildReport) SanitizedCopy() *BuildReportSerializable {
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	durations := r.StageDurations
	if durations == nil {
		durations = map[string]time.Duration{}
	}
	s := &BuildReportSerializable{
		SchemaVersion:   r.SchemaVersion,
		BuildID:         r.BuildID,
		Project:         r.Project,
		Start:           r.Start,
		End:             r.End,
		Errors:          make([]string, len(r.Errors)),
		StageDurations:  durations,
		StageErrorKinds: sek,
		FailedStage:     string(r.FailedStage),
		Routes:          r.Routes,
		Files:           r.Files,
		StaticFiles:     r.StaticFiles,
		RenderedPages:   r.RenderedPages,
		Outcome:         string(r.Outcome),
		Version:         r.Version,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	return s
}
