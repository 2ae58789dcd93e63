// internal/domain/audit.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditAction classifies an entry in the plan-scoped audit trail.
// Permission actions carry the old/new tier; suggestion actions carry
// the suggestion id.
type AuditAction string

const (
	AuditGranted  AuditAction = "granted"
	AuditModified AuditAction = "modified"
	AuditRevoked  AuditAction = "revoked"

	AuditSuggestionSubmitted AuditAction = "suggestion-submitted"
	AuditSuggestionApproved  AuditAction = "suggestion-approved"
	AuditSuggestionRejected  AuditAction = "suggestion-rejected"
	AuditSuggestionApplied   AuditAction = "suggestion-applied"
	AuditSuggestionCommented AuditAction = "suggestion-commented"
)

// AuditRecord is one append-only entry in a plan's audit history.
// Records are never updated or deleted; per-plan chronological order
// is preserved and queries return newest first.
type AuditRecord struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PlanID          primitive.ObjectID  `bson:"planId" json:"planId"`
	CollaboratorID  string              `bson:"collaboratorId" json:"collaboratorId"`
	Action          AuditAction         `bson:"action" json:"action"`
	PreviousType    *GrantType          `bson:"previousType,omitempty" json:"previousType,omitempty"`
	NewType         *GrantType          `bson:"newType,omitempty" json:"newType,omitempty"`
	SuggestionID    *primitive.ObjectID `bson:"suggestionId,omitempty" json:"suggestionId,omitempty"`
	PerformedBy     string              `bson:"performedBy" json:"performedBy"`
	PerformedByName string              `bson:"performedByName,omitempty" json:"performedByName,omitempty"`
	Reason          string              `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp       time.Time           `bson:"timestamp" json:"timestamp"`
}
