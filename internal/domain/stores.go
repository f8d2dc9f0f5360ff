package domain

import (
	"context"

	"github.com/google/uuid"
)

// HistoryStore persists finished diagnosis records for audit and
// similar-case retrieval. The inference core never touches it; the
// session controller writes one record after quiescence.
type HistoryStore interface {
	Save(ctx context.Context, rec *DiagnosisRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiagnosisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]DiagnosisRecord, error)
	// FindSimilar returns past records ordered by cosine distance between
	// symptom incidence vectors, excluding the query record itself.
	FindSimilar(ctx context.Context, vector []float32, exclude uuid.UUID, limit int) ([]RecordWithDistance, error)
}
