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

// --- Error Definitions ---
var (
	ErrSuggestionNotFound     = errors.New("suggestion not found")
	ErrInvalidStateTransition = errors.New("invalid suggestion state transition")
)

// SubmitSuggestionInput carries the payload of a new suggestion.
type SubmitSuggestionInput struct {
	Title       string
	Description string
	Type        domain.SuggestionType
	Details     *domain.SuggestionDetails
}

// SuggestionService manages the proposal workflow on plans. State
// changes follow the fixed transition table (pending -> approved |
// rejected, approved -> applied); everything else fails with
// ErrInvalidStateTransition and mutates nothing. Applying a suggestion
// only marks it consumed; the plan itself is edited separately.
type SuggestionService interface {
	SubmitSuggestion(ctx context.Context, actorID, actorName string, planID primitive.ObjectID, input SubmitSuggestionInput) (*domain.Suggestion, error)
	ApproveSuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID) (*domain.Suggestion, error)
	RejectSuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID, reason string) (*domain.Suggestion, error)
	ApplySuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID) (*domain.Suggestion, error)
	AddComment(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID, body string) (*domain.SuggestionComment, error)
	GetSuggestion(ctx context.Context, actorID string, suggestionID primitive.ObjectID) (*domain.Suggestion, error)
	ListSuggestionsForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.Suggestion, error)
}

// suggestionService implements the SuggestionService interface.
type suggestionService struct {
	planRepo       repository.PlanRepository
	grantRepo      repository.GrantRepository
	suggestionRepo repository.SuggestionRepository
	auditRepo      repository.AuditRepository
	logger         *zap.Logger
}

// NewSuggestionService creates a new instance of suggestionService.
func NewSuggestionService(
	planRepo repository.PlanRepository,
	grantRepo repository.GrantRepository,
	suggestionRepo repository.SuggestionRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) SuggestionService {
	return &suggestionService{
		planRepo:       planRepo,
		grantRepo:      grantRepo,
		suggestionRepo: suggestionRepo,
		auditRepo:      auditRepo,
		logger:         logger,
	}
}

// actorHasCapability checks the actor's effective grant on a plan for
// one capability. The plan owner passes every check.
func (s *suggestionService) actorHasCapability(ctx context.Context, plan *domain.Plan, actorID string, cap domain.Capability) (bool, error) {
	if plan.IsOwnedBy(actorID) {
		return true, nil
	}
	grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, plan.ID, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return grant.HasCapability(cap, time.Now().UTC()), nil
}

// getPlan resolves a plan or maps the repo error to the service one.
func (s *suggestionService) getPlan(ctx context.Context, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// SubmitSuggestion creates a pending suggestion on a plan. The actor
// needs the suggest capability.
func (s *suggestionService) SubmitSuggestion(ctx context.Context, actorID, actorName string, planID primitive.ObjectID, input SubmitSuggestionInput) (*domain.Suggestion, error) {
	if input.Title == "" || !domain.IsValidSuggestionType(input.Type) {
		return nil, ErrValidationFailed
	}

	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.actorHasCapability(ctx, plan, actorID, domain.CapabilitySuggest)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}

	suggestion := &domain.Suggestion{
		PlanID:           planID,
		CollaboratorID:   actorID,
		CollaboratorName: actorName,
		Type:             input.Type,
		Title:            input.Title,
		Description:      input.Description,
		Details:          input.Details,
		Status:           domain.SuggestionPending,
		Comments:         []domain.SuggestionComment{},
	}
	suggestionID, err := s.suggestionRepo.Create(ctx, suggestion)
	if err != nil {
		return nil, err
	}
	suggestion.ID = suggestionID

	if err := s.appendWorkflowAudit(ctx, suggestion, domain.AuditSuggestionSubmitted, actorID, actorName, ""); err != nil {
		// No mutation may outlive a missing audit record
		s.logger.Error("audit append failed, rolling back suggestion",
			zap.String("suggestionId", suggestionID.Hex()), zap.Error(err))
		if delErr := s.suggestionRepo.Delete(ctx, suggestionID); delErr != nil {
			s.logger.Error("failed to compensate suggestion create",
				zap.String("suggestionId", suggestionID.Hex()), zap.Error(delErr))
		}
		return nil, errors.Join(ErrAuditAppendFailed, err)
	}

	s.logger.Info("suggestion submitted",
		zap.String("planId", planID.Hex()),
		zap.String("suggestionId", suggestionID.Hex()))
	return suggestion, nil
}

// ApproveSuggestion moves a pending suggestion to approved, stamping
// the approver. The actor needs edit capability or plan ownership.
func (s *suggestionService) ApproveSuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID) (*domain.Suggestion, error) {
	return s.transition(ctx, actorID, actorName, suggestionID, domain.SuggestionApproved, "")
}

// RejectSuggestion moves a pending suggestion to rejected with an
// optional reason. Same authorization as approve.
func (s *suggestionService) RejectSuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID, reason string) (*domain.Suggestion, error) {
	return s.transition(ctx, actorID, actorName, suggestionID, domain.SuggestionRejected, reason)
}

// ApplySuggestion marks an approved suggestion as applied. It does not
// touch the plan; the caller performs the actual edit through the plan
// service, keeping the state machine pure.
func (s *suggestionService) ApplySuggestion(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID) (*domain.Suggestion, error) {
	return s.transition(ctx, actorID, actorName, suggestionID, domain.SuggestionApplied, "")
}

// transition performs one state-machine step with an optimistic
// conditional write: the repository only lands the update while the
// stored status still equals the one we read, so two racing calls
// produce exactly one winner.
func (s *suggestionService) transition(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID, target domain.SuggestionStatus, reason string) (*domain.Suggestion, error) {
	suggestion, err := s.suggestionRepo.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, err
	}
	plan, err := s.getPlan(ctx, suggestion.PlanID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.actorHasCapability(ctx, plan, actorID, domain.CapabilityEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}

	from := suggestion.Status
	if !from.CanTransitionTo(target) {
		return nil, ErrInvalidStateTransition
	}

	previous := *suggestion
	now := time.Now().UTC()
	suggestion.Status = target
	var action domain.AuditAction
	switch target {
	case domain.SuggestionApproved:
		suggestion.ApprovedBy = actorID
		suggestion.ApprovedByName = actorName
		suggestion.ApprovedAt = &now
		action = domain.AuditSuggestionApproved
	case domain.SuggestionRejected:
		suggestion.RejectedBy = actorID
		suggestion.RejectedAt = &now
		suggestion.RejectionReason = reason
		action = domain.AuditSuggestionRejected
	case domain.SuggestionApplied:
		suggestion.AppliedBy = actorID
		suggestion.AppliedAt = &now
		action = domain.AuditSuggestionApplied
	default:
		return nil, ErrInvalidStateTransition
	}

	if err := s.suggestionRepo.Transition(ctx, suggestion, from); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		if errors.Is(err, repository.ErrPreconditionFailed) {
			// Lost the race: someone else moved the status first
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := s.appendWorkflowAudit(ctx, suggestion, action, actorID, actorName, reason); err != nil {
		s.logger.Error("audit append failed, reverting transition",
			zap.String("suggestionId", suggestionID.Hex()), zap.Error(err))
		if revertErr := s.suggestionRepo.Transition(ctx, &previous, target); revertErr != nil {
			s.logger.Error("failed to compensate suggestion transition",
				zap.String("suggestionId", suggestionID.Hex()), zap.Error(revertErr))
		}
		return nil, errors.Join(ErrAuditAppendFailed, err)
	}

	suggestion.UpdatedAt = now
	s.logger.Info("suggestion transitioned",
		zap.String("suggestionId", suggestionID.Hex()),
		zap.String("from", string(from)),
		zap.String("to", string(target)))
	return suggestion, nil
}

// AddComment appends to a suggestion's discussion thread. Allowed in
// any status so the historical discussion stays open after
// resolution; the actor needs the comment capability.
func (s *suggestionService) AddComment(ctx context.Context, actorID, actorName string, suggestionID primitive.ObjectID, body string) (*domain.SuggestionComment, error) {
	if body == "" {
		return nil, ErrValidationFailed
	}
	suggestion, err := s.suggestionRepo.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, err
	}
	plan, err := s.getPlan(ctx, suggestion.PlanID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.actorHasCapability(ctx, plan, actorID, domain.CapabilityComment)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}

	comment := domain.SuggestionComment{
		ID:         primitive.NewObjectID(),
		AuthorID:   actorID,
		AuthorName: actorName,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.suggestionRepo.AddComment(ctx, suggestionID, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, err
	}

	if err := s.appendWorkflowAudit(ctx, suggestion, domain.AuditSuggestionCommented, actorID, actorName, ""); err != nil {
		s.logger.Error("audit append failed, removing comment",
			zap.String("suggestionId", suggestionID.Hex()), zap.Error(err))
		if pullErr := s.suggestionRepo.RemoveComment(ctx, suggestionID, comment.ID); pullErr != nil {
			s.logger.Error("failed to compensate comment add",
				zap.String("suggestionId", suggestionID.Hex()), zap.Error(pullErr))
		}
		return nil, errors.Join(ErrAuditAppendFailed, err)
	}
	return &comment, nil
}

// GetSuggestion retrieves one suggestion; the actor needs view access
// on the owning plan.
func (s *suggestionService) GetSuggestion(ctx context.Context, actorID string, suggestionID primitive.ObjectID) (*domain.Suggestion, error) {
	suggestion, err := s.suggestionRepo.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, err
	}
	plan, err := s.getPlan(ctx, suggestion.PlanID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.actorHasCapability(ctx, plan, actorID, domain.CapabilityView)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}
	return suggestion, nil
}

// ListSuggestionsForPlan retrieves a plan's suggestions, newest first.
func (s *suggestionService) ListSuggestionsForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.Suggestion, error) {
	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.actorHasCapability(ctx, plan, actorID, domain.CapabilityView)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}
	return s.suggestionRepo.ListByPlan(ctx, planID)
}

// appendWorkflowAudit records one suggestion lifecycle event in the
// plan-scoped audit trail.
func (s *suggestionService) appendWorkflowAudit(ctx context.Context, suggestion *domain.Suggestion, action domain.AuditAction, actorID, actorName, reason string) error {
	suggestionID := suggestion.ID
	record := &domain.AuditRecord{
		PlanID:          suggestion.PlanID,
		CollaboratorID:  suggestion.CollaboratorID,
		Action:          action,
		SuggestionID:    &suggestionID,
		PerformedBy:     actorID,
		PerformedByName: actorName,
		Reason:          reason,
		Timestamp:       time.Now().UTC(),
	}
	_, err := s.auditRepo.Append(ctx, record)
	return err
}
