package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/kb"
	"github.com/cropsense-ai/cropsense/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockHistoryStore mocks the HistoryStore interface.
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Save(ctx context.Context, rec *domain.DiagnosisRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockHistoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiagnosisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DiagnosisRecord), args.Error(1)
}

func (m *MockHistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.DiagnosisRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiagnosisRecord), args.Error(1)
}

func (m *MockHistoryStore) FindSimilar(ctx context.Context, vector []float32, exclude uuid.UUID, limit int) ([]domain.RecordWithDistance, error) {
	args := m.Called(ctx, vector, exclude, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecordWithDistance), args.Error(1)
}

func cfPtr(v float64) *float64 { return &v }

// markerKnowledgeBase is a two-symptom rule set where each marker
// independently implicates the same condition, plus a finalizer. It keeps
// the combination arithmetic observable end to end without the full
// catalog's rules in the way.
func markerKnowledgeBase(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	evidence := func(id, symptom string, strength float64) domain.Rule {
		return domain.Rule{
			ID:       id,
			Priority: 80,
			Conditions: []domain.Condition{{
				Type: domain.FactSymptom,
				Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: symptom},
					{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
				},
			}},
			Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
				return domain.NewConclusionFact(domain.FactDisease, "blotch",
					strength*b.Num("?cf"), domain.BasisStrong, symptom), nil
			},
		}
	}
	finalize := domain.Rule{
		ID:       "conclude",
		Priority: 20,
		Conditions: []domain.Condition{
			{
				Type:    domain.FactDisease,
				Matches: []domain.AttrMatch{{Attr: domain.AttrName, Op: domain.OpBind, Var: "?n"}},
			},
			{
				Negated: true,
				Type:    domain.FactFinalDisease,
				Matches: []domain.AttrMatch{{Attr: domain.AttrName, Op: domain.OpBind, Var: "?any"}},
			},
		},
		Assert: func(view domain.MemoryView, _ domain.Bindings) (domain.Fact, error) {
			best := domain.SelectBest(kb.Score(view, domain.CategoryDisease))
			if best == nil {
				return domain.Fact{}, errors.New("no candidates")
			}
			return domain.NewFinalFact(domain.FactFinalDisease, best.Name, best.CF), nil
		},
	}

	k, err := kb.New([]domain.Rule{
		evidence("blotch-from-brown", "brown-leaf-spots", 0.7),
		evidence("blotch-from-halos", "yellow-halos", 0.5),
		finalize,
	})
	require.NoError(t, err)
	return k
}

func TestDiagnosisService_Diagnose_CombinesMarkerEvidence(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(markerKnowledgeBase(t), nil, 0, zap.NewNop())

	rec, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		GrowthStage: kb.StageVegetative,
		Symptoms: []domain.SymptomObservation{
			{Name: "brown-leaf-spots"},
			{Name: "yellow-halos"},
		},
	})

	require.NoError(t, err)
	winner := rec.Result.PerCategory[domain.CategoryDisease].Winner
	require.NotNil(t, winner)
	assert.Equal(t, "blotch", winner.Name)
	assert.InDelta(t, 0.85, winner.CF, 1e-9)
	assert.ElementsMatch(t, []string{"brown-leaf-spots", "yellow-halos"}, winner.Evidence)
}

func TestDiagnosisService_Diagnose_FullKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	history := new(MockHistoryStore)
	history.On("Save", ctx, mock.AnythingOfType("*domain.DiagnosisRecord")).Return(nil)

	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	rec, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		GrowthStage: kb.StageVegetative,
		Symptoms: []domain.SymptomObservation{
			{Name: "brown-leaf-spots", Severity: domain.SeveritySevere},
			{Name: "yellow-halos", Severity: domain.SeveritySevere},
		},
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Len(t, rec.Vector, kb.VectorDim)
	assert.Positive(t, rec.Result.Firings)

	disease := rec.Result.PerCategory[domain.CategoryDisease]
	require.NotNil(t, disease.Winner)
	assert.Equal(t, "early-blight", disease.Winner.Name)
	assert.GreaterOrEqual(t, disease.Winner.CF, 0.76)
	assert.Contains(t, disease.Winner.Explanation, "Early Blight")
	assert.ElementsMatch(t, []string{"brown-leaf-spots", "yellow-halos"}, disease.Winner.Evidence)

	triage := rec.Result.PerCategory[domain.CategoryTriage]
	require.NotNil(t, triage.Winner)
	assert.Equal(t, kb.TriageUrgent, triage.Winner.Name)

	history.AssertExpectations(t)
}

func TestDiagnosisService_Diagnose_Deterministic(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	input := domain.DiagnosisInput{
		GrowthStage: kb.StageFlowering,
		Symptoms: []domain.SymptomObservation{
			{Name: "brown-leaf-spots"},
			{Name: "yellow-halos"},
			{Name: "blossom-end-rot"},
		},
	}

	first, err := svc.Diagnose(ctx, input)
	require.NoError(t, err)
	second, err := svc.Diagnose(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
}

func TestDiagnosisService_Diagnose_ContextOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	rec, err := svc.Diagnose(ctx, domain.DiagnosisInput{})
	require.NoError(t, err)

	// With nothing observed the default vegetative stage still yields
	// nutrient plausibility and a routine triage, but never a disease.
	assert.Nil(t, rec.Result.PerCategory[domain.CategoryDisease].Winner)

	nutrient := rec.Result.PerCategory[domain.CategoryNutrient]
	require.NotNil(t, nutrient.Winner)
	assert.Equal(t, "nitrogen", nutrient.Winner.Name)
	assert.InDelta(t, 0.30, nutrient.Winner.CF, 1e-9)

	triage := rec.Result.PerCategory[domain.CategoryTriage]
	require.NotNil(t, triage.Winner)
	assert.Equal(t, kb.TriageRoutine, triage.Winner.Name)

	for _, v := range rec.Vector {
		assert.Zero(t, v)
	}
}

func TestDiagnosisService_Diagnose_RejectsUnknownSymptom(t *testing.T) {
	ctx := context.Background()
	history := new(MockHistoryStore)
	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	_, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		Symptoms: []domain.SymptomObservation{{Name: "purple-polka-dots"}},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	history.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDiagnosisService_Diagnose_RejectsBadCertainty(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	for _, bad := range []float64{-0.1, 1.5} {
		_, err := svc.Diagnose(ctx, domain.DiagnosisInput{
			Symptoms: []domain.SymptomObservation{{Name: "brown-leaf-spots", CF: cfPtr(bad)}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cf %v", bad)
	}
}

func TestDiagnosisService_Diagnose_RejectsUnknownStage(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	_, err := svc.Diagnose(ctx, domain.DiagnosisInput{GrowthStage: "dormant"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDiagnosisService_Diagnose_RejectsBadSeverity(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	_, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		Symptoms: []domain.SymptomObservation{{Name: "brown-leaf-spots", Severity: "catastrophic"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDiagnosisService_Diagnose_RejectsDuplicateSymptom(t *testing.T) {
	ctx := context.Background()
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	_, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		Symptoms: []domain.SymptomObservation{
			{Name: "brown-leaf-spots"},
			{Name: "brown-leaf-spots", Severity: domain.SeverityMild},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDiagnosisService_Diagnose_SurvivesPersistFailure(t *testing.T) {
	ctx := context.Background()
	history := new(MockHistoryStore)
	history.On("Save", ctx, mock.AnythingOfType("*domain.DiagnosisRecord")).
		Return(errors.New("connection refused"))

	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	rec, err := svc.Diagnose(ctx, domain.DiagnosisInput{
		Symptoms: []domain.SymptomObservation{{Name: "leaf-mottling"}},
	})

	require.NoError(t, err)
	assert.NotNil(t, rec.Result)
	history.AssertExpectations(t)
}

func TestDiagnosisService_Session_NotFound(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	history := new(MockHistoryStore)
	history.On("GetByID", ctx, id).Return(nil, store.ErrNotFound)

	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	_, err := svc.Session(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	history.AssertExpectations(t)
}

func TestDiagnosisService_Session_HistoryDisabled(t *testing.T) {
	svc := NewDiagnosisService(kb.Default(), nil, 0, zap.NewNop())

	_, err := svc.Session(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestDiagnosisService_Recent_ClampsLimit(t *testing.T) {
	ctx := context.Background()

	history := new(MockHistoryStore)
	history.On("ListRecent", ctx, DefaultRecentLimit).Return([]domain.DiagnosisRecord{}, nil)
	history.On("ListRecent", ctx, MaxListLimit).Return([]domain.DiagnosisRecord{}, nil)

	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	_, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	_, err = svc.Recent(ctx, 5000)
	require.NoError(t, err)

	history.AssertExpectations(t)
}

func TestDiagnosisService_Similar_UsesStoredVector(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	vec := make([]float32, kb.VectorDim)
	vec[0] = 1

	stored := &domain.DiagnosisRecord{ID: id, Vector: vec}
	neighbor := domain.RecordWithDistance{
		DiagnosisRecord: domain.DiagnosisRecord{ID: uuid.New()},
		Distance:        0.12,
	}

	history := new(MockHistoryStore)
	history.On("GetByID", ctx, id).Return(stored, nil)
	history.On("FindSimilar", ctx, vec, id, DefaultSimilarLimit).
		Return([]domain.RecordWithDistance{neighbor}, nil)

	svc := NewDiagnosisService(kb.Default(), history, 0, zap.NewNop())

	got, err := svc.Similar(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, neighbor.DiagnosisRecord.ID, got[0].ID)
	history.AssertExpectations(t)
}
