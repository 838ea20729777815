package models

/*
Job status and task type constants used throughout the codebase.
Centralizing these avoids magic strings.
*/

// Job status constants
const (
	JobStatusEnqueued        = "enqueued"
	JobStatusProcessing      = "processing"
	JobStatusCompleted       = "completed"
	JobStatusFailed          = "failed"
	JobStatusCancelRequested = "cancel_requested"
	JobStatusCancelled       = "cancelled"
)

// Service type constants for usage logging
const (
	ServiceTypeTagging = "tagging"
	ServiceTypeMapGen  = "mapgen"
)
