package repository

import (
	"alcyxob/diet-collab/internal/domain" // Import our defined domain models
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound           = RepositoryError("not found")
	ErrUpdateFailed       = RepositoryError("update failed")
	ErrDeleteFailed       = RepositoryError("delete failed")
	ErrPreconditionFailed = RepositoryError("precondition failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanRepository defines the interface for interacting with plan data.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]domain.Plan, error)
	UpdateMeals(ctx context.Context, id primitive.ObjectID, meals []domain.MealEntry) error
}

// GrantRepository defines the interface for interacting with
// permission grant data. Delete exists solely so a failed audit append
// can compensate a just-created grant; revocation is a soft delete
// through Update.
type GrantRepository interface {
	Create(ctx context.Context, grant *domain.PermissionGrant) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PermissionGrant, error)
	GetByPlanAndCollaborator(ctx context.Context, planID primitive.ObjectID, collaboratorID string) (*domain.PermissionGrant, error)
	ListActiveByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PermissionGrant, error)
	Update(ctx context.Context, grant *domain.PermissionGrant) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AuditRepository defines the interface for the append-only audit
// trail. Records are immutable; ListByPlan returns newest first.
type AuditRepository interface {
	Append(ctx context.Context, record *domain.AuditRecord) (primitive.ObjectID, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AuditRecord, error)
}

// SuggestionRepository defines the interface for suggestion data.
// Transition performs a conditional status update: the write only
// lands when the stored status still equals fromStatus, which keeps
// the transition table exclusive under concurrent callers. A lost
// race surfaces as ErrPreconditionFailed. RemoveComment and Delete
// exist solely so a failed audit append can compensate the mutation
// that preceded it.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *domain.Suggestion) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Suggestion, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Suggestion, error)
	Transition(ctx context.Context, suggestion *domain.Suggestion, fromStatus domain.SuggestionStatus) error
	AddComment(ctx context.Context, suggestionID primitive.ObjectID, comment domain.SuggestionComment) error
	RemoveComment(ctx context.Context, suggestionID, commentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// IntakeRepository defines the interface for imported intake records.
// Records are append-only; LatestByPlanAndDate resolves repeat imports
// for the same day to the most recently imported record.
type IntakeRepository interface {
	Create(ctx context.Context, record *domain.ImportedIntakeRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ImportedIntakeRecord, error)
	LatestByPlanAndDate(ctx context.Context, planID primitive.ObjectID, date string) (*domain.ImportedIntakeRecord, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ImportedIntakeRecord, error)
}

// ReconciliationRepository defines the interface for the per-plan
// history of generated reconciliation results.
type ReconciliationRepository interface {
	Create(ctx context.Context, result *domain.ReconciliationResult) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ReconciliationResult, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ReconciliationResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
