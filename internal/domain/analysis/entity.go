package analysis

import (
	"time"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// ResultID tipe untuk AnalysisResult
type ResultID string

// Result is a standalone persisted analysis. Insert only.
type Result struct {
	ID           ResultID   `json:"id"`
	UserEmail    string     `json:"user_email"`
	DocumentType media.Kind `json:"document_type"`
	DocumentURL  string     `json:"document_url"`
	Label        ai.Label   `json:"label"`
	Confidence   float64    `json:"confidence"`
	Reason       string     `json:"reason"`
	CreatedAt    time.Time  `json:"created_at"`
}
