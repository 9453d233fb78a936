package models

// SourceKind tells which kind of chat attachment a file came from.
type SourceKind string

const (
	SourceDocument SourceKind = "document"
	SourcePhoto    SourceKind = "photo"
)

// FileState tracks each pipeline stage for a single submitted file.
// Transitions only move forward; the terminal states are Printed, Deleted,
// PageLimitExceeded and ConversionFailed.
type FileState string

const (
	StateReceived          FileState = "received"
	StateDownloading       FileState = "downloading"
	StateConverting        FileState = "converting"
	StateConversionFailed  FileState = "conversion_failed"
	StateConverted         FileState = "converted"
	StatePageCounted       FileState = "page_counted"
	StatePageLimitExceeded FileState = "page_limit_exceeded"
	StateReadyForDecision  FileState = "ready_for_decision"
	StatePrinted           FileState = "printed"
	StateDeleted           FileState = "deleted"
)

// FileDescriptor is what the transport declares about an inbound file
// before any bytes are fetched. Size is taken on trust from the transport
// and is not re-verified against the actual download.
type FileDescriptor struct {
	FileID       string
	OriginalName string
	SizeBytes    int64
	Kind         SourceKind
}

// FileRecord is a file owned by the pipeline, stored under the storage
// root. It is created on first contact and mutated only by the stage
// currently processing it.
type FileRecord struct {
	StoragePath  string
	OriginalName string
	SizeBytes    int64
	Kind         SourceKind
	PageCount    int
	State        FileState
}

// ActionKind is a user decision on a staged file.
type ActionKind string

const (
	ActionPrint  ActionKind = "print"
	ActionDelete ActionKind = "delete"
)

// Action is the decision event carried back from an inline button. Path is
// attacker-visible and must pass the path guard before any filesystem or
// spooler operation.
type Action struct {
	Kind ActionKind
	Path string
}

// PrinterSnapshot is a point-in-time view of the spooler. It is
// regenerated on every query and never cached. Each field is filled
// independently, a failing query blanks only its own field and records the
// failure in Err.
type PrinterSnapshot struct {
	StatusText string `json:"status_text,omitempty"`
	QueueText  string `json:"queue_text,omitempty"`
	Err        string `json:"error,omitempty"`
}
