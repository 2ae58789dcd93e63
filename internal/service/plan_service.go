package service

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreatePlanInput carries the validated fields for a new plan.
type CreatePlanInput struct {
	ClientID    string
	Name        string
	Description string
	Meals       []domain.MealEntry
}

// PlanService owns the plan store side of the engine: creating plans
// and applying explicit edits. Suggestion application never reaches
// this service implicitly: an accepted suggestion is turned into an
// edit by the caller.
type PlanService interface {
	CreatePlan(ctx context.Context, ownerID string, input CreatePlanInput) (*domain.Plan, error)
	GetPlan(ctx context.Context, actorID string, planID primitive.ObjectID) (*domain.Plan, error)
	ListPlansForOwner(ctx context.Context, ownerID string) ([]domain.Plan, error)
	ApplyEdits(ctx context.Context, actorID string, planID primitive.ObjectID, meals []domain.MealEntry) (*domain.Plan, error)
}

// planService implements the PlanService interface.
type planService struct {
	planRepo  repository.PlanRepository
	grantRepo repository.GrantRepository
	logger    *zap.Logger
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	grantRepo repository.GrantRepository,
	logger *zap.Logger,
) PlanService {
	return &planService{
		planRepo:  planRepo,
		grantRepo: grantRepo,
		logger:    logger,
	}
}

// CreatePlan creates a nutrition plan owned by the calling trainer.
func (s *planService) CreatePlan(ctx context.Context, ownerID string, input CreatePlanInput) (*domain.Plan, error) {
	if ownerID == "" || input.ClientID == "" || input.Name == "" {
		return nil, ErrValidationFailed
	}
	for _, meal := range input.Meals {
		if meal.Name == "" || !domain.IsValidMealSlot(meal.Slot) {
			return nil, ErrValidationFailed
		}
	}

	plan := &domain.Plan{
		OwnerID:     ownerID,
		ClientID:    input.ClientID,
		Name:        input.Name,
		Description: input.Description,
		Meals:       input.Meals,
		IsActive:    true,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID

	s.logger.Info("plan created",
		zap.String("planId", planID.Hex()),
		zap.String("ownerId", ownerID))
	return plan, nil
}

// GetPlan retrieves a plan for the owner or a collaborator with the
// view capability.
func (s *planService) GetPlan(ctx context.Context, actorID string, planID primitive.ObjectID) (*domain.Plan, error) {
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

// ListPlansForOwner retrieves the plans owned by a trainer.
func (s *planService) ListPlansForOwner(ctx context.Context, ownerID string) ([]domain.Plan, error) {
	if ownerID == "" {
		return nil, ErrValidationFailed
	}
	return s.planRepo.GetByOwnerID(ctx, ownerID)
}

// ApplyEdits replaces the plan's meal entries. The owner may always
// edit; a collaborator needs an effective grant with the edit
// capability, and a block-limited grant must cover every touched meal.
func (s *planService) ApplyEdits(ctx context.Context, actorID string, planID primitive.ObjectID, meals []domain.MealEntry) (*domain.Plan, error) {
	for _, meal := range meals {
		if meal.Name == "" || !domain.IsValidMealSlot(meal.Slot) {
			return nil, ErrValidationFailed
		}
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	if !plan.IsOwnedBy(actorID) {
		grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, planID, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrAccessDenied
			}
			return nil, err
		}
		if !grant.HasCapability(domain.CapabilityEdit, time.Now().UTC()) {
			return nil, ErrAccessDenied
		}
		if err := checkBlockScope(grant, plan.Meals, meals); err != nil {
			return nil, err
		}
	}

	if err := s.planRepo.UpdateMeals(ctx, planID, meals); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	plan.Meals = meals
	plan.UpdatedAt = time.Now().UTC()
	s.logger.Info("plan edited",
		zap.String("planId", planID.Hex()),
		zap.String("actorId", actorID))
	return plan, nil
}

// checkBlockScope enforces a LimitedToBlocks restriction: every meal
// that was added, removed, or changed must be a block the grant
// allows. Grants without the restriction allow everything.
func checkBlockScope(grant *domain.PermissionGrant, before, after []domain.MealEntry) error {
	if grant.Restrictions == nil || len(grant.Restrictions.LimitedToBlocks) == 0 {
		return nil
	}

	prev := make(map[string]domain.MealEntry, len(before))
	for _, meal := range before {
		prev[meal.ID.Hex()] = meal
	}
	next := make(map[string]domain.MealEntry, len(after))
	for _, meal := range after {
		if meal.ID.IsZero() {
			// New meals have no block identity yet; a block-limited
			// grant cannot introduce them
			return ErrAccessDenied
		}
		next[meal.ID.Hex()] = meal
	}

	for id, meal := range next {
		old, existed := prev[id]
		if !existed || old != meal {
			if !grant.AllowsBlock(id) {
				return ErrAccessDenied
			}
		}
	}
	for id := range prev {
		if _, kept := next[id]; !kept {
			if !grant.AllowsBlock(id) {
				return ErrAccessDenied
			}
		}
	}
	return nil
}
