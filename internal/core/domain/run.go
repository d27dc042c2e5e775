package domain

import "time"

// Run is the record of one processing run over one file.
type Run struct {
	ID         string            `json:"id"`
	FileName   string            `json:"fileName"`
	MimeType   string            `json:"mimeType"`
	FileSize   int64             `json:"fileSize"`
	Options    ProcessingOptions `json:"options"`
	Steps      []ProcessingStep  `json:"steps"`
	Results    ResultsAggregate  `json:"results"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt,omitempty"`
}

func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Counts returns how many steps completed with a payload and how many failed.
func (r Run) Counts() (succeeded, failed int) {
	for _, s := range r.Steps {
		switch {
		case s.Status == StepError:
			failed++
		case s.Status == StepCompleted && r.Results.Has(s.ID):
			succeeded++
		}
	}
	return succeeded, failed
}

func (r Run) Status() string {
	if !r.Finished() {
		return "running"
	}
	succeeded, failed := r.Counts()
	switch {
	case failed > 0 && succeeded == 0:
		return "failed"
	case failed > 0:
		return "partial"
	}
	return "completed"
}

type RunEventType string

const (
	RunStarted  RunEventType = "started"
	RunStep     RunEventType = "step"
	RunFinished RunEventType = "finished"
)

type RunEvent struct {
	Type RunEventType    `json:"type"`
	Run  Run             `json:"run"`
	Step *ProcessingStep `json:"step,omitempty"`
	At   time.Time       `json:"at"`
}

// ProcessingJob asks a worker to run the pipeline over a stored file.
type ProcessingJob struct {
	ID         string            `json:"id"`
	Path       string            `json:"path"`
	FileName   string            `json:"fileName,omitempty"`
	MimeType   string            `json:"mimeType,omitempty"`
	Options    ProcessingOptions `json:"options"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`

	// DocumentID links the run to a catalog document; zero means none.
	// Without Force a document with a cached result is not processed again.
	DocumentID int64 `json:"documentId,omitempty"`
	Force      bool  `json:"force,omitempty"`
}
