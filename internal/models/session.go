package models

// IngestStatus represents the status of an ingestion batch.
type IngestStatus string

const (
	IngestStatusIdle      IngestStatus = "idle"
	IngestStatusLoading   IngestStatus = "loading"
	IngestStatusParsing   IngestStatus = "parsing"
	IngestStatusComplete  IngestStatus = "complete"
	IngestStatusCancelled IngestStatus = "cancelled"
	IngestStatusError     IngestStatus = "error"
)

// IngestSession represents one viewer session: an isolated record store
// plus the state of its most recent ingestion batch.
type IngestSession struct {
	ID               string        `json:"id"`
	Status           IngestStatus  `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	InputID          string        `json:"inputId,omitempty"`
	InputName        string        `json:"inputName,omitempty"`
	RecordCount      int           `json:"recordCount"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	Error            string        `json:"error,omitempty"`
	Warnings         []LoadWarning `json:"warnings,omitempty"`
}

// NewIngestSession creates a new idle session.
func NewIngestSession(id string) *IngestSession {
	return &IngestSession{
		ID:       id,
		Status:   IngestStatusIdle,
		Warnings: make([]LoadWarning, 0),
	}
}

// IngestSummary is the summary event delivered to the rendering layer
// after records are committed.
type IngestSummary struct {
	Files      []SourceSummary `json:"files"`
	Records    int             `json:"records"`
	Structured int             `json:"structured"`
	Fallback   int             `json:"fallback"`
	BySeverity map[string]int  `json:"bySeverity"`
	Warnings   []LoadWarning   `json:"warnings,omitempty"`
	TimeBounds *SummaryBounds  `json:"timeBounds,omitempty"`
}

// SourceSummary describes one loaded source file.
type SourceSummary struct {
	Name     string `json:"name"`
	Records  int    `json:"records"`
	Encoding string `json:"encoding,omitempty"`
}

// SummaryBounds is the min/max canonical timestamp across records that
// carry one.
type SummaryBounds struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}
