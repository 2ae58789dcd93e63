package service

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"alcyxob/diet-collab/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid" // For generating unique archive object keys
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrIntakeNotFound         = errors.New("intake record not found")
	ErrReconciliationNotFound = errors.New("reconciliation result not found")
)

// ImportIntakeInput carries one normalized client-day of tracking-app
// data. Normalization from app-specific payloads happens outside the
// engine.
type ImportIntakeInput struct {
	ClientID          string
	SourceApp         domain.SourceApp
	Date              string // YYYY-MM-DD
	CaloriesTotal     float64
	CaloriesBySlot    map[domain.MealSlot]float64
	Macros            *domain.Macros
	DigestiveSymptoms []domain.DigestiveSymptom
	Extras            *domain.IntakeExtras
}

// CompareOutcome pairs a stored reconciliation result with the archive
// status of its JSON report.
type CompareOutcome struct {
	Result   *domain.ReconciliationResult
	Archived bool
}

// ReconciliationService imports normalized intake data and compares it
// against the prescribed plan, appending each generated report to the
// plan's history and archiving a JSON copy in object storage.
type ReconciliationService interface {
	ImportIntake(ctx context.Context, actorID string, planID primitive.ObjectID, input ImportIntakeInput) (*domain.ImportedIntakeRecord, error)
	ComparePlanToIntake(ctx context.Context, actorID string, planID primitive.ObjectID, date string) (*CompareOutcome, error)
	ListIntakeForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.ImportedIntakeRecord, error)
	ListHistoryForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.ReconciliationResult, error)
	GetReportDownloadURL(ctx context.Context, actorID string, resultID primitive.ObjectID) (string, error)
	DeleteReconciliation(ctx context.Context, actorID string, resultID primitive.ObjectID) error
}

// reconciliationService implements the ReconciliationService interface.
type reconciliationService struct {
	planRepo   repository.PlanRepository
	grantRepo  repository.GrantRepository
	intakeRepo repository.IntakeRepository
	reconRepo  repository.ReconciliationRepository
	archive    storage.ReportArchive
	logger     *zap.Logger
}

// NewReconciliationService creates a new instance of reconciliationService.
func NewReconciliationService(
	planRepo repository.PlanRepository,
	grantRepo repository.GrantRepository,
	intakeRepo repository.IntakeRepository,
	reconRepo repository.ReconciliationRepository,
	archive storage.ReportArchive,
	logger *zap.Logger,
) ReconciliationService {
	return &reconciliationService{
		planRepo:   planRepo,
		grantRepo:  grantRepo,
		intakeRepo: intakeRepo,
		reconRepo:  reconRepo,
		archive:    archive,
		logger:     logger,
	}
}

// authorizeView checks that the actor may see the plan's data: owner
// or an effective grant with the view capability.
func (s *reconciliationService) authorizeView(ctx context.Context, planID primitive.ObjectID, actorID string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.IsOwnedBy(actorID) {
		return plan, nil
	}
	grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, planID, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if !grant.HasCapability(domain.CapabilityView, time.Now().UTC()) {
		return nil, ErrAccessDenied
	}
	return plan, nil
}

// ImportIntake stores one normalized client-day record. Re-imports for
// the same date append; readers resolve the latest at query time.
func (s *reconciliationService) ImportIntake(ctx context.Context, actorID string, planID primitive.ObjectID, input ImportIntakeInput) (*domain.ImportedIntakeRecord, error) {
	if input.ClientID == "" || input.Date == "" {
		return nil, ErrValidationFailed
	}
	if !domain.IsValidSourceApp(input.SourceApp) {
		return nil, ErrValidationFailed
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return nil, ErrValidationFailed
	}
	for slot := range input.CaloriesBySlot {
		if !domain.IsValidMealSlot(slot) {
			return nil, ErrValidationFailed
		}
	}

	if _, err := s.authorizeView(ctx, planID, actorID); err != nil {
		return nil, err
	}

	record := &domain.ImportedIntakeRecord{
		PlanID:            planID,
		ClientID:          input.ClientID,
		SourceApp:         input.SourceApp,
		Date:              input.Date,
		CaloriesTotal:     input.CaloriesTotal,
		CaloriesBySlot:    input.CaloriesBySlot,
		Macros:            input.Macros,
		DigestiveSymptoms: input.DigestiveSymptoms,
		Extras:            input.Extras,
		ImportedAt:        time.Now().UTC(),
	}
	recordID, err := s.intakeRepo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = recordID

	s.logger.Info("intake imported",
		zap.String("planId", planID.Hex()),
		zap.String("date", input.Date),
		zap.String("sourceApp", string(input.SourceApp)))
	return record, nil
}

// ComparePlanToIntake generates the plan-vs-reality report for one
// day, appends it to the plan's history, and archives a JSON copy.
// The archive upload is best effort: a failed upload is reported via
// Archived=false, never by dropping the stored result.
func (s *reconciliationService) ComparePlanToIntake(ctx context.Context, actorID string, planID primitive.ObjectID, date string) (*CompareOutcome, error) {
	plan, err := s.authorizeView(ctx, planID, actorID)
	if err != nil {
		return nil, err
	}

	intake, err := s.intakeRepo.LatestByPlanAndDate(ctx, planID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMissingIntakeData
		}
		return nil, err
	}

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	result.ArchiveKey = fmt.Sprintf("reconciliations/%s/%s-%s.json", planID.Hex(), date, uuid.NewString())

	resultID, err := s.reconRepo.Create(ctx, result)
	if err != nil {
		return nil, err
	}
	result.ID = resultID

	archived := true
	payload, err := json.Marshal(result)
	if err == nil {
		err = s.archive.StoreReport(ctx, result.ArchiveKey, payload, "application/json")
	}
	if err != nil {
		archived = false
		s.logger.Warn("report archive failed",
			zap.String("resultId", resultID.Hex()), zap.Error(err))
	}

	s.logger.Info("reconciliation generated",
		zap.String("planId", planID.Hex()),
		zap.String("date", date),
		zap.Float64("compliance", result.CalorieComparison.Compliance))
	return &CompareOutcome{Result: result, Archived: archived}, nil
}

// ListIntakeForPlan retrieves the imported records of a plan, newest first.
func (s *reconciliationService) ListIntakeForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.ImportedIntakeRecord, error) {
	if _, err := s.authorizeView(ctx, planID, actorID); err != nil {
		return nil, err
	}
	return s.intakeRepo.ListByPlan(ctx, planID)
}

// ListHistoryForPlan retrieves the reconciliation history, newest first.
func (s *reconciliationService) ListHistoryForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.ReconciliationResult, error) {
	if _, err := s.authorizeView(ctx, planID, actorID); err != nil {
		return nil, err
	}
	return s.reconRepo.ListByPlan(ctx, planID)
}

// GetReportDownloadURL returns a presigned URL for the archived JSON
// report of a stored result.
func (s *reconciliationService) GetReportDownloadURL(ctx context.Context, actorID string, resultID primitive.ObjectID) (string, error) {
	result, err := s.reconRepo.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrReconciliationNotFound
		}
		return "", err
	}
	if _, err := s.authorizeView(ctx, result.PlanID, actorID); err != nil {
		return "", err
	}
	if result.ArchiveKey == "" {
		return "", ErrReconciliationNotFound
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, result.ArchiveKey, storage.DefaultPresignedURLExpiry)
}

// DeleteReconciliation removes a stored result from the plan's history
// along with its archived JSON report. Allowed for the plan owner or a
// collaborator whose effective grant carries the delete capability.
// The archive cleanup is best effort: the stored result is the record
// of truth and its removal is what the caller observes.
func (s *reconciliationService) DeleteReconciliation(ctx context.Context, actorID string, resultID primitive.ObjectID) error {
	result, err := s.reconRepo.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReconciliationNotFound
		}
		return err
	}

	plan, err := s.planRepo.GetByID(ctx, result.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if !plan.IsOwnedBy(actorID) {
		grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, result.PlanID, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccessDenied
			}
			return err
		}
		if !grant.HasCapability(domain.CapabilityDelete, time.Now().UTC()) {
			return ErrAccessDenied
		}
	}

	if err := s.reconRepo.Delete(ctx, resultID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReconciliationNotFound
		}
		return err
	}
	if result.ArchiveKey != "" {
		if err := s.archive.DeleteObject(ctx, result.ArchiveKey); err != nil {
			s.logger.Warn("archived report cleanup failed",
				zap.String("resultId", resultID.Hex()),
				zap.String("archiveKey", result.ArchiveKey),
				zap.Error(err))
		}
	}

	s.logger.Info("reconciliation deleted",
		zap.String("planId", result.PlanID.Hex()),
		zap.String("resultId", resultID.Hex()))
	return nil
}
