package core

import "time"

// BatchResult captures the evaluation of one title in a batch run.
type BatchResult struct {
	Title       string            `json:"title"`
	Report      *UniquenessReport `json:"report,omitempty"`
	Error       string            `json:"error,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}
