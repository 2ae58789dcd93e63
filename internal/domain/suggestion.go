// internal/domain/suggestion.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuggestionStatus is the finite state of a suggestion's lifecycle.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionApplied  SuggestionStatus = "applied"
)

// suggestionTransitions is the explicit transition table:
// pending -> approved | rejected, approved -> applied.
// Nothing leaves rejected or applied.
var suggestionTransitions = map[SuggestionStatus][]SuggestionStatus{
	SuggestionPending:  {SuggestionApproved, SuggestionRejected},
	SuggestionApproved: {SuggestionApplied},
}

// CanTransitionTo reports whether the transition table allows moving
// from s to next.
func (s SuggestionStatus) CanTransitionTo(next SuggestionStatus) bool {
	for _, allowed := range suggestionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SuggestionType is the closed set of change categories a collaborator
// can propose.
type SuggestionType string

const (
	SuggestModifyMeal     SuggestionType = "modify-meal"
	SuggestSubstituteMeal SuggestionType = "substitute-meal"
	SuggestAdjustMacros   SuggestionType = "adjust-macros"
	SuggestAddMeal        SuggestionType = "add-meal"
	SuggestRemoveMeal     SuggestionType = "remove-meal"
	SuggestChangeSchedule SuggestionType = "change-schedule"
	SuggestOther          SuggestionType = "other"
)

// IsValidSuggestionType reports whether t is a known category.
func IsValidSuggestionType(t SuggestionType) bool {
	switch t {
	case SuggestModifyMeal, SuggestSubstituteMeal, SuggestAdjustMacros,
		SuggestAddMeal, SuggestRemoveMeal, SuggestChangeSchedule, SuggestOther:
		return true
	}
	return false
}

// SuggestionComment is one entry in a suggestion's append-only
// discussion thread.
type SuggestionComment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID   string             `bson:"authorId" json:"authorId"`
	AuthorName string             `bson:"authorName,omitempty" json:"authorName,omitempty"`
	Body       string             `bson:"body" json:"body"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// ProposedChange describes one field-level change inside a suggestion.
type ProposedChange struct {
	Field         string `bson:"field" json:"field"`
	PreviousValue string `bson:"previousValue,omitempty" json:"previousValue,omitempty"`
	NewValue      string `bson:"newValue" json:"newValue"`
	Reason        string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// SuggestionDetails carries the optional structured payload of a
// suggestion: which meal/slot/day it targets and the concrete changes.
type SuggestionDetails struct {
	MealID   string           `bson:"mealId,omitempty" json:"mealId,omitempty"`
	MealSlot MealSlot         `bson:"mealSlot,omitempty" json:"mealSlot,omitempty"`
	Day      string           `bson:"day,omitempty" json:"day,omitempty"`
	Changes  []ProposedChange `bson:"changes,omitempty" json:"changes,omitempty"`
}

// Suggestion is a proposed, reviewable change to a plan. It moves
// through the transition table above; approval, rejection and
// application each stamp the acting user and a timestamp. Applying a
// suggestion only marks it consumed; the actual plan mutation is the
// caller's responsibility through the plan edit operation.
type Suggestion struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PlanID           primitive.ObjectID  `bson:"planId" json:"planId"`
	CollaboratorID   string              `bson:"collaboratorId" json:"collaboratorId"`
	CollaboratorName string              `bson:"collaboratorName,omitempty" json:"collaboratorName,omitempty"`
	Type             SuggestionType      `bson:"type" json:"type"`
	Title            string              `bson:"title" json:"title"`
	Description      string              `bson:"description" json:"description"`
	Details          *SuggestionDetails  `bson:"details,omitempty" json:"details,omitempty"`
	Status           SuggestionStatus    `bson:"status" json:"status"`
	ApprovedBy       string              `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedByName   string              `bson:"approvedByName,omitempty" json:"approvedByName,omitempty"`
	ApprovedAt       *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedBy       string              `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt       *time.Time          `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason  string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	AppliedBy        string              `bson:"appliedBy,omitempty" json:"appliedBy,omitempty"`
	AppliedAt        *time.Time          `bson:"appliedAt,omitempty" json:"appliedAt,omitempty"`
	Comments         []SuggestionComment `bson:"comments" json:"comments"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}
