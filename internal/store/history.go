package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// ErrNotFound is returned when a queried record does not exist.
var ErrNotFound = errors.New("not found")

// HistoryStore persists finished diagnosis sessions in Postgres. The
// symptom incidence vector is stored as a pgvector column so similar
// cases can be retrieved by cosine distance.
type HistoryStore struct {
	db *pgxpool.Pool
}

func NewHistoryStore(db *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Save(ctx context.Context, rec *domain.DiagnosisRecord) error {
	symptoms, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return fmt.Errorf("marshal symptoms: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO diagnoses (id, growth_stage, symptoms, result, vector, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.GrowthStage, symptoms, result, pgvector.NewVector(rec.Vector), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}
	return nil
}

func (s *HistoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiagnosisRecord, error) {
	var (
		rec      domain.DiagnosisRecord
		symptoms []byte
		result   []byte
		vec      pgvector.Vector
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, growth_stage, symptoms, result, vector, created_at
		 FROM diagnoses
		 WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.GrowthStage, &symptoms, &result, &vec, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get diagnosis: %w", err)
	}
	if err := unmarshalRecord(&rec, symptoms, result); err != nil {
		return nil, err
	}
	rec.Vector = vec.Slice()
	return &rec, nil
}

func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.DiagnosisRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, growth_stage, symptoms, result, created_at
		 FROM diagnoses
		 ORDER BY created_at DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	defer rows.Close()

	var records []domain.DiagnosisRecord
	for rows.Next() {
		var (
			rec      domain.DiagnosisRecord
			symptoms []byte
			result   []byte
		)
		if err := rows.Scan(&rec.ID, &rec.GrowthStage, &symptoms, &result, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagnosis: %w", err)
		}
		if err := unmarshalRecord(&rec, symptoms, result); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *HistoryStore) FindSimilar(ctx context.Context, vector []float32, exclude uuid.UUID, limit int) ([]domain.RecordWithDistance, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, growth_stage, symptoms, result, created_at,
		        vector <=> $1 AS distance
		 FROM diagnoses
		 WHERE id <> $2
		 ORDER BY vector <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), exclude, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similar diagnoses query: %w", err)
	}
	defer rows.Close()

	var results []domain.RecordWithDistance
	for rows.Next() {
		var (
			rd       domain.RecordWithDistance
			symptoms []byte
			result   []byte
		)
		if err := rows.Scan(&rd.ID, &rd.GrowthStage, &symptoms, &result, &rd.CreatedAt, &rd.Distance); err != nil {
			return nil, fmt.Errorf("scan similar diagnosis: %w", err)
		}
		if err := unmarshalRecord(&rd.DiagnosisRecord, symptoms, result); err != nil {
			return nil, err
		}
		results = append(results, rd)
	}
	return results, rows.Err()
}

func unmarshalRecord(rec *domain.DiagnosisRecord, symptoms, result []byte) error {
	if err := json.Unmarshal(symptoms, &rec.Symptoms); err != nil {
		return fmt.Errorf("unmarshal symptoms: %w", err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

var _ domain.HistoryStore = (*HistoryStore)(nil)
