package models

type EventType string

const (
	EventStarted       EventType = "started"
	EventFileStarted   EventType = "file_started"
	EventFileCompleted EventType = "file_completed"
	EventFileError     EventType = "file_error"
	EventCompleted     EventType = "completed"
	EventError         EventType = "error"
)

// ProgressEvent is one message of a streamed audit run. Only the fields
// relevant to Type are set.
type ProgressEvent struct {
	Type            EventType        `json:"type"`
	AuditID         string           `json:"audit_id,omitempty"`
	TotalFiles      int              `json:"total_files,omitempty"`
	TotalParameters int              `json:"total_parameters,omitempty"`
	Index           *int             `json:"index,omitempty"`
	Filename        string           `json:"filename,omitempty"`
	Progress        float64          `json:"progress,omitempty"`
	Score           *float64         `json:"score,omitempty"`
	File            *FileAuditResult `json:"file,omitempty"`
	Error           string           `json:"error,omitempty"`
	ProcessedFiles  int              `json:"processed_files,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	ProcessingTime  float64          `json:"processing_time,omitempty"`
}

// IsTerminal reports whether no further events follow this one.
func (e ProgressEvent) IsTerminal() bool {
	return e.Type == EventCompleted || e.Type == EventError
}
