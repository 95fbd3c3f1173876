package model

// Import job states. A job only moves forward except error -> processing on retry.
const (
	ImportStatusUploaded   = "uploaded"
	ImportStatusProcessing = "processing"
	ImportStatusComplete   = "complete"
	ImportStatusError      = "error"
)

// ImportJob is one run of CSV ingestion. It is never persisted; it lives in the
// worker executing it and is observed through progress events.
type ImportJob struct {
	JobID         string `json:"job_id"`
	SourcePath    string `json:"source_path"`
	TotalRows     int    `json:"total_rows"`
	ProcessedRows int    `json:"processed_rows"`
	State         string `json:"state"`
}

// ProgressEvent is the message published on a job's progress topic.
type ProgressEvent struct {
	Status    string   `json:"status"`
	Processed *int     `json:"processed,omitempty"`
	Total     *int     `json:"total,omitempty"`
	Percent   *float64 `json:"percent,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// NewProgressEvent builds an event carrying counters.
func NewProgressEvent(status string, processed, total int, percent float64) ProgressEvent {
	return ProgressEvent{
		Status:    status,
		Processed: &processed,
		Total:     &total,
		Percent:   &percent,
	}
}

// NewErrorEvent builds an error event carrying only a message.
func NewErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Status: ImportStatusError, Message: message}
}

// NewUploadedEvent is the first event of every job.
func NewUploadedEvent() ProgressEvent {
	zero := 0.0
	return ProgressEvent{Status: ImportStatusUploaded, Percent: &zero}
}
