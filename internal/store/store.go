// Package store keeps analysis results and payment orders between the
// upload, checkout and delivery steps. The default backend is in-memory;
// the SQLite backend survives restarts with the same interface.
package store

import (
	"errors"
	"time"

	"github.com/LukaSashic/gruenderai/internal/analysis"
)

var ErrNotFound = errors.New("not found")

// AnalysisRecord is one scored document keyed by its analysis id.
type AnalysisRecord struct {
	ID            string            `json:"id"`
	Result        analysis.Analysis `json:"result"`
	Filename      string            `json:"filename"`
	CreatedAt     time.Time         `json:"created_at"`
	Paid          bool              `json:"paid"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
}

// PaymentRecord tracks one PayPal order through its lifecycle.
type PaymentRecord struct {
	OrderID    string    `json:"order_id"`
	AnalysisID string    `json:"analysis_id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// Payment statuses.
const (
	PaymentCreated   = "CREATED"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

type AnalysisStore interface {
	PutAnalysis(rec AnalysisRecord) error
	GetAnalysis(id string) (AnalysisRecord, error)
	// MarkPaid flips the paid flag and records the buyer's contact so
	// the delivery worker knows where to send the report.
	MarkPaid(id, email, name string) error
	DeleteAnalysis(id string) error
}

type PaymentStore interface {
	PutPayment(rec PaymentRecord) error
	GetPayment(orderID string) (PaymentRecord, error)
	SetPaymentStatus(orderID, status string, capturedAt time.Time) error
}

// Store bundles both concerns; every backend implements the whole thing.
type Store interface {
	AnalysisStore
	PaymentStore
	Close() error
}
