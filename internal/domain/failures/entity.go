package failures

import "time"

// Failure represents a persisted pipeline abort
type Failure struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"user_email"`
	Kind        string    `json:"kind,omitempty"`
	Stage       string    `json:"stage,omitempty"` // stage that aborted, e.g. features_extracted
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
