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
	ErrValidationFailed = errors.New("validation failed")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrGrantNotFound    = errors.New("permission grant not found")
	ErrAccessDenied     = errors.New("access denied")
	// ErrAuditAppendFailed wraps a failed audit write. No mutation may
	// succeed without its audit record, so the triggering change is
	// compensated before this is returned.
	ErrAuditAppendFailed = errors.New("audit append failed")
)

// AssignPermissionInput carries the validated fields for a new grant.
type AssignPermissionInput struct {
	CollaboratorID    string
	CollaboratorName  string
	CollaboratorEmail string
	GrantType         domain.GrantType
	Restrictions      *domain.GrantRestrictions
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// GrantPatch is the typed, field-by-field update for a grant. Nil
// fields are left untouched; a tier change recomputes capabilities.
type GrantPatch struct {
	CollaboratorName  *string
	CollaboratorEmail *string
	GrantType         *domain.GrantType
	Restrictions      *domain.GrantRestrictions
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// PermissionService governs collaborator access to plans. Every
// mutating operation is authorized against the plan owner or an
// effective reassign-capable grant, and lands in the audit trail.
type PermissionService interface {
	AssignPermission(ctx context.Context, actorID, actorName string, planID primitive.ObjectID, input AssignPermissionInput) (*domain.PermissionGrant, error)
	UpdatePermission(ctx context.Context, actorID, actorName string, grantID primitive.ObjectID, patch GrantPatch) (*domain.PermissionGrant, error)
	RevokePermission(ctx context.Context, actorID, actorName string, grantID primitive.ObjectID, reason string) error
	HasCapability(ctx context.Context, planID primitive.ObjectID, collaboratorID string, cap domain.Capability) (bool, error)
	ListGrantsForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.PermissionGrant, error)
	GetGrantForCollaborator(ctx context.Context, planID primitive.ObjectID, collaboratorID string) (*domain.PermissionGrant, error)
	GetAuditHistory(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.AuditRecord, error)
}

// permissionService implements the PermissionService interface.
type permissionService struct {
	planRepo  repository.PlanRepository
	grantRepo repository.GrantRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

// NewPermissionService creates a new instance of permissionService.
func NewPermissionService(
	planRepo repository.PlanRepository,
	grantRepo repository.GrantRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) PermissionService {
	return &permissionService{
		planRepo:  planRepo,
		grantRepo: grantRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// authorizeGovernance checks that the actor may manage grants on the
// plan: either the owning trainer or a collaborator whose effective
// grant carries the reassign capability.
func (s *permissionService) authorizeGovernance(ctx context.Context, planID primitive.ObjectID, actorID string) (*domain.Plan, error) {
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
	if !grant.HasCapability(domain.CapabilityReassign, time.Now().UTC()) {
		return nil, ErrAccessDenied
	}
	return plan, nil
}

// AssignPermission creates a grant for a collaborator on a plan and
// records it in the audit trail.
func (s *permissionService) AssignPermission(ctx context.Context, actorID, actorName string, planID primitive.ObjectID, input AssignPermissionInput) (*domain.PermissionGrant, error) {
	// 1. Validate input
	if input.CollaboratorID == "" {
		return nil, ErrValidationFailed
	}
	caps, ok := domain.CapabilitiesForType(input.GrantType)
	if !ok {
		return nil, ErrValidationFailed
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, ErrValidationFailed
	}

	// 2. Authorize the actor
	if _, err := s.authorizeGovernance(ctx, planID, actorID); err != nil {
		return nil, err
	}

	// 3. Create grant with derived capabilities
	grant := &domain.PermissionGrant{
		PlanID:            planID,
		CollaboratorID:    input.CollaboratorID,
		CollaboratorName:  input.CollaboratorName,
		CollaboratorEmail: input.CollaboratorEmail,
		GrantType:         input.GrantType,
		Capabilities:      caps,
		Restrictions:      input.Restrictions,
		Active:            true,
		ValidFrom:         input.ValidFrom,
		ValidUntil:        input.ValidUntil,
		GrantedBy:         actorID,
		GrantedByName:     actorName,
	}
	grantID, err := s.grantRepo.Create(ctx, grant)
	if err != nil {
		return nil, err
	}
	grant.ID = grantID

	// 4. Audit append; compensate the create on failure
	newType := input.GrantType
	record := &domain.AuditRecord{
		PlanID:          planID,
		CollaboratorID:  input.CollaboratorID,
		Action:          domain.AuditGranted,
		NewType:         &newType,
		PerformedBy:     actorID,
		PerformedByName: actorName,
		Timestamp:       time.Now().UTC(),
	}
	if _, err := s.auditRepo.Append(ctx, record); err != nil {
		s.logger.Error("audit append failed, rolling back grant",
			zap.String("grantId", grantID.Hex()), zap.Error(err))
		if delErr := s.grantRepo.Delete(ctx, grantID); delErr != nil {
			s.logger.Error("failed to compensate grant create",
				zap.String("grantId", grantID.Hex()), zap.Error(delErr))
		}
		return nil, errors.Join(ErrAuditAppendFailed, err)
	}

	s.logger.Info("permission assigned",
		zap.String("planId", planID.Hex()),
		zap.String("collaboratorId", input.CollaboratorID),
		zap.String("grantType", string(input.GrantType)))
	return grant, nil
}

// UpdatePermission applies a typed patch to an existing grant. A tier
// change recomputes the capability set and is captured old/new in the
// audit record.
func (s *permissionService) UpdatePermission(ctx context.Context, actorID, actorName string, grantID primitive.ObjectID, patch GrantPatch) (*domain.PermissionGrant, error) {
	grant, err := s.grantRepo.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	if _, err := s.authorizeGovernance(ctx, grant.PlanID, actorID); err != nil {
		return nil, err
	}

	previous := *grant
	previousType := grant.GrantType

	if patch.CollaboratorName != nil {
		grant.CollaboratorName = *patch.CollaboratorName
	}
	if patch.CollaboratorEmail != nil {
		grant.CollaboratorEmail = *patch.CollaboratorEmail
	}
	if patch.GrantType != nil {
		caps, ok := domain.CapabilitiesForType(*patch.GrantType)
		if !ok {
			return nil, ErrValidationFailed
		}
		grant.GrantType = *patch.GrantType
		grant.Capabilities = caps
	}
	if patch.Restrictions != nil {
		grant.Restrictions = patch.Restrictions
	}
	if patch.ValidFrom != nil {
		grant.ValidFrom = patch.ValidFrom
	}
	if patch.ValidUntil != nil {
		grant.ValidUntil = patch.ValidUntil
	}
	if grant.ValidFrom != nil && grant.ValidUntil != nil && grant.ValidUntil.Before(*grant.ValidFrom) {
		return nil, ErrValidationFailed
	}

	if err := s.grantRepo.Update(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}

	record := &domain.AuditRecord{
		PlanID:          grant.PlanID,
		CollaboratorID:  grant.CollaboratorID,
		Action:          domain.AuditModified,
		PerformedBy:     actorID,
		PerformedByName: actorName,
		Timestamp:       time.Now().UTC(),
	}
	if grant.GrantType != previousType {
		newType := grant.GrantType
		record.PreviousType = &previousType
		record.NewType = &newType
	}
	if _, err := s.auditRepo.Append(ctx, record); err != nil {
		s.logger.Error("audit append failed, restoring grant",
			zap.String("grantId", grantID.Hex()), zap.Error(err))
		if restoreErr := s.grantRepo.Update(ctx, &previous); restoreErr != nil {
			s.logger.Error("failed to compensate grant update",
				zap.String("grantId", grantID.Hex()), zap.Error(restoreErr))
		}
		return nil, errors.Join(ErrAuditAppendFailed, err)
	}

	grant.UpdatedAt = time.Now().UTC()
	return grant, nil
}

// RevokePermission soft-deletes a grant: the record stays for the
// audit trail with Active=false. Revoking an already-revoked grant is
// a no-op so retries are harmless.
func (s *permissionService) RevokePermission(ctx context.Context, actorID, actorName string, grantID primitive.ObjectID, reason string) error {
	grant, err := s.grantRepo.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGrantNotFound
		}
		return err
	}
	if _, err := s.authorizeGovernance(ctx, grant.PlanID, actorID); err != nil {
		return err
	}

	if !grant.Active {
		// Idempotent re-revoke
		return nil
	}

	previous := *grant
	grant.Active = false
	if err := s.grantRepo.Update(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGrantNotFound
		}
		return err
	}

	previousType := grant.GrantType
	record := &domain.AuditRecord{
		PlanID:          grant.PlanID,
		CollaboratorID:  grant.CollaboratorID,
		Action:          domain.AuditRevoked,
		PreviousType:    &previousType,
		PerformedBy:     actorID,
		PerformedByName: actorName,
		Reason:          reason,
		Timestamp:       time.Now().UTC(),
	}
	if _, err := s.auditRepo.Append(ctx, record); err != nil {
		s.logger.Error("audit append failed, restoring grant",
			zap.String("grantId", grantID.Hex()), zap.Error(err))
		if restoreErr := s.grantRepo.Update(ctx, &previous); restoreErr != nil {
			s.logger.Error("failed to compensate grant revoke",
				zap.String("grantId", grantID.Hex()), zap.Error(restoreErr))
		}
		return errors.Join(ErrAuditAppendFailed, err)
	}

	s.logger.Info("permission revoked",
		zap.String("planId", grant.PlanID.Hex()),
		zap.String("collaboratorId", grant.CollaboratorID))
	return nil
}

// HasCapability reports whether the collaborator currently holds the
// capability on the plan. A missing grant is simply false, not an
// error; this predicate never mutates anything.
func (s *permissionService) HasCapability(ctx context.Context, planID primitive.ObjectID, collaboratorID string, cap domain.Capability) (bool, error) {
	grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, planID, collaboratorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return grant.HasCapability(cap, time.Now().UTC()), nil
}

// ListGrantsForPlan retrieves the active grants of a plan. The caller
// must be able to manage (owner/reassign) or at least view the plan.
func (s *permissionService) ListGrantsForPlan(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.PermissionGrant, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsOwnedBy(actorID) {
		allowed, err := s.HasCapability(ctx, planID, actorID, domain.CapabilityView)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrAccessDenied
		}
	}
	return s.grantRepo.ListActiveByPlan(ctx, planID)
}

// GetGrantForCollaborator retrieves the active grant of a collaborator
// on a plan, or ErrGrantNotFound.
func (s *permissionService) GetGrantForCollaborator(ctx context.Context, planID primitive.ObjectID, collaboratorID string) (*domain.PermissionGrant, error) {
	grant, err := s.grantRepo.GetByPlanAndCollaborator(ctx, planID, collaboratorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return grant, nil
}

// GetAuditHistory retrieves a plan's audit trail, newest first. Owner
// or any collaborator with view access may read it.
func (s *permissionService) GetAuditHistory(ctx context.Context, actorID string, planID primitive.ObjectID) ([]domain.AuditRecord, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsOwnedBy(actorID) {
		allowed, err := s.HasCapability(ctx, planID, actorID, domain.CapabilityView)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrAccessDenied
		}
	}
	return s.auditRepo.ListByPlan(ctx, planID)
}
