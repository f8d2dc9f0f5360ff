package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/engine"
	"github.com/cropsense-ai/cropsense/internal/kb"
	"github.com/cropsense-ai/cropsense/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("diagnosis session not found")
	ErrHistoryDisabled = errors.New("history persistence is disabled")
)

const (
	// MaxSymptomsPerSession bounds one request; the catalog itself is the
	// natural ceiling since duplicates are rejected.
	MaxSymptomsPerSession = kb.VectorDim
	// DefaultRecentLimit caps recent-session listings when the caller
	// does not specify one.
	DefaultRecentLimit = 20
	// MaxListLimit is the hard cap for any history listing.
	MaxListLimit = 100
	// DefaultSimilarLimit caps similar-case retrieval.
	DefaultSimilarLimit = 5
)

// DiagnosisService runs diagnostic sessions over the static knowledge
// base and, when a history store is configured, persists the finished
// records for audit and similar-case retrieval.
type DiagnosisService struct {
	knowledge *kb.KnowledgeBase
	engine    *engine.Engine
	history   domain.HistoryStore
	logger    *zap.Logger
}

// NewDiagnosisService wires the session controller. history may be nil,
// which disables persistence but not diagnosis. maxFirings <= 0 selects
// the engine default.
func NewDiagnosisService(
	knowledge *kb.KnowledgeBase,
	history domain.HistoryStore,
	maxFirings int,
	logger *zap.Logger,
) *DiagnosisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosisService{
		knowledge: knowledge,
		engine:    engine.New(knowledge.Rules(), maxFirings, logger),
		history:   history,
		logger:    logger,
	}
}

// Diagnose validates the observations, runs inference to quiescence, and
// returns the finished record. Validation happens before any fact is
// asserted, so a rejected request leaves no partial session behind. When
// a history store is configured the record is persisted; a storage
// failure is logged and the diagnosis still returned, since the result
// itself is already final.
func (s *DiagnosisService) Diagnose(ctx context.Context, input domain.DiagnosisInput) (*domain.DiagnosisRecord, error) {
	stage, err := s.resolveStage(input.GrowthStage)
	if err != nil {
		return nil, err
	}
	if err := validateSymptoms(input.Symptoms); err != nil {
		return nil, err
	}

	wm := engine.NewWorkingMemory()
	if _, err := wm.Assert(domain.NewGrowthStageFact(stage)); err != nil {
		return nil, err
	}
	for _, obs := range input.Symptoms {
		if _, err := wm.Assert(observationFact(obs)); err != nil {
			return nil, err
		}
	}

	trace, err := s.engine.Run(wm)
	if err != nil {
		s.logger.Error("inference aborted",
			zap.String("stage", stage),
			zap.Int("symptoms", len(input.Symptoms)),
			zap.Error(err))
		return nil, err
	}

	record := &domain.DiagnosisRecord{
		ID:          uuid.New(),
		GrowthStage: stage,
		Symptoms:    input.Symptoms,
		Result:      s.extract(wm, trace),
		Vector:      kb.Vectorize(input.Symptoms),
		CreatedAt:   time.Now().UTC(),
	}

	s.logger.Info("diagnosis complete",
		zap.String("session_id", record.ID.String()),
		zap.String("stage", stage),
		zap.Int("symptoms", len(input.Symptoms)),
		zap.Int("firings", record.Result.Firings))

	if s.history != nil {
		if err := s.history.Save(ctx, record); err != nil {
			s.logger.Warn("failed to persist diagnosis record",
				zap.String("session_id", record.ID.String()),
				zap.Error(err))
		}
	}
	return record, nil
}

// Session fetches one persisted record by id.
func (s *DiagnosisService) Session(ctx context.Context, id uuid.UUID) (*domain.DiagnosisRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	rec, err := s.history.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Recent lists the most recently persisted sessions, newest first.
func (s *DiagnosisService) Recent(ctx context.Context, limit int) ([]domain.DiagnosisRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListRecent(ctx, clampLimit(limit, DefaultRecentLimit))
}

// Similar returns past sessions ranked by symptom-vector distance from the
// given session, nearest first.
func (s *DiagnosisService) Similar(ctx context.Context, id uuid.UUID, limit int) ([]domain.RecordWithDistance, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	rec, err := s.history.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s.history.FindSimilar(ctx, rec.Vector, rec.ID, clampLimit(limit, DefaultSimilarLimit))
}

func (s *DiagnosisService) resolveStage(stage string) (string, error) {
	if stage == "" {
		return kb.DefaultStage, nil
	}
	if !kb.HasStage(stage) {
		return "", fmt.Errorf("%w: unknown growth stage %q", domain.ErrInvalidInput, stage)
	}
	return stage, nil
}

func validateSymptoms(symptoms []domain.SymptomObservation) error {
	if len(symptoms) > MaxSymptomsPerSession {
		return fmt.Errorf("%w: %d symptoms exceeds the limit of %d",
			domain.ErrInvalidInput, len(symptoms), MaxSymptomsPerSession)
	}
	seen := make(map[string]bool, len(symptoms))
	for _, obs := range symptoms {
		if !kb.HasSymptom(obs.Name) {
			return fmt.Errorf("%w: unknown symptom %q", domain.ErrInvalidInput, obs.Name)
		}
		if seen[obs.Name] {
			return fmt.Errorf("%w: symptom %q observed twice", domain.ErrInvalidInput, obs.Name)
		}
		seen[obs.Name] = true
		if obs.Severity != "" && !domain.ValidSeverity(obs.Severity) {
			return fmt.Errorf("%w: severity %q for %q is not mild, moderate, or severe",
				domain.ErrInvalidInput, obs.Severity, obs.Name)
		}
		if obs.CF != nil && (*obs.CF < 0 || *obs.CF > 1) {
			return fmt.Errorf("%w: certainty %v for %q is outside [0, 1]",
				domain.ErrInvalidInput, *obs.CF, obs.Name)
		}
	}
	return nil
}

// observationFact converts one validated observation into its working
// memory fact. An explicit certainty wins; otherwise the severity grade
// implies one; a bare symptom name counts as fully observed.
func observationFact(obs domain.SymptomObservation) domain.Fact {
	cf := 1.0
	if obs.Severity != "" {
		cf = obs.Severity.ObservationCF()
	}
	if obs.CF != nil {
		cf = *obs.CF
	}
	return domain.NewSymptomFact(obs.Name, string(obs.Severity), cf)
}

// extract assembles the session result from the quiesced working memory.
// Candidate scores come from the same aggregation the finalization rules
// used, so winners and candidate lists always agree.
func (s *DiagnosisService) extract(wm *engine.WorkingMemory, trace []domain.TraceEntry) *domain.Result {
	res := &domain.Result{
		PerCategory: make(map[domain.Category]domain.CategoryResult, 3),
		Trace:       trace,
		Firings:     len(trace),
	}

	for _, cat := range domain.AllCategories() {
		candidates := kb.Score(wm, cat)
		for i := range candidates {
			candidates[i].Explanation = explainConclusion(cat, candidates[i])
		}

		var winner *domain.Conclusion
		if finals := wm.FactsOfType(cat.FinalFactType()); len(finals) > 0 {
			final := finals[0]
			w := domain.Conclusion{Name: final.Name(), CF: final.Num(domain.AttrCF)}
			for _, c := range candidates {
				if c.Name == w.Name {
					w.Evidence = c.Evidence
					break
				}
			}
			w.Explanation = explainConclusion(cat, w)
			winner = &w
		}
		res.PerCategory[cat] = domain.CategoryResult{Winner: winner, Candidates: candidates}
	}

	for _, adj := range wm.FactsOfType(domain.FactAdjustment) {
		res.Adjustments = append(res.Adjustments, domain.AdjustmentRecord{
			Target:       adj.Sym(domain.AttrTarget),
			Source:       adj.Sym(domain.AttrSource),
			ImpactFactor: adj.Num(domain.AttrFactor),
			OriginalCF:   adj.Num(domain.AttrOriginalCF),
			AdjustedCF:   adj.Num(domain.AttrAdjustedCF),
		})
	}
	return res
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
