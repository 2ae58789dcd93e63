package service

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type suggestionFixture struct {
	planRepo       *fakePlanRepo
	grantRepo      *fakeGrantRepo
	suggestionRepo *fakeSuggestionRepo
	auditRepo      *fakeAuditRepo
	svc            SuggestionService
	planID         primitive.ObjectID
}

// newSuggestionFixture wires a plan owned by ownerID with a
// suggestion-tier grant for collaboratorID.
func newSuggestionFixture(t *testing.T) *suggestionFixture {
	t.Helper()
	f := &suggestionFixture{
		planRepo:       newFakePlanRepo(),
		grantRepo:      newFakeGrantRepo(),
		suggestionRepo: newFakeSuggestionRepo(),
		auditRepo:      &fakeAuditRepo{},
	}
	f.svc = NewSuggestionService(f.planRepo, f.grantRepo, f.suggestionRepo, f.auditRepo, zap.NewNop())

	planID, err := f.planRepo.Create(context.Background(), &domain.Plan{
		OwnerID:  ownerID,
		ClientID: "client-1",
		Name:     "Bulking phase",
		Meals:    []domain.MealEntry{{Name: "Rice and chicken", Slot: domain.SlotLunch}},
		IsActive: true,
	})
	require.NoError(t, err)
	f.planID = planID

	caps, _ := domain.CapabilitiesForType(domain.GrantSuggestion)
	_, err = f.grantRepo.Create(context.Background(), &domain.PermissionGrant{
		PlanID:         planID,
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantSuggestion,
		Capabilities:   caps,
		Active:         true,
	})
	require.NoError(t, err)
	return f
}

func (f *suggestionFixture) submit(t *testing.T) *domain.Suggestion {
	t.Helper()
	suggestion, err := f.svc.SubmitSuggestion(context.Background(), collaboratorID, "Nutritionist One", f.planID, SubmitSuggestionInput{
		Title: "Swap lunch carbs",
		Type:  domain.SuggestModifyMeal,
	})
	require.NoError(t, err)
	return suggestion
}

func TestSubmitSuggestion(t *testing.T) {
	f := newSuggestionFixture(t)

	suggestion := f.submit(t)
	assert.Equal(t, domain.SuggestionPending, suggestion.Status)
	assert.Equal(t, collaboratorID, suggestion.CollaboratorID)

	require.Len(t, f.auditRepo.records, 1)
	record := f.auditRepo.records[0]
	assert.Equal(t, domain.AuditSuggestionSubmitted, record.Action)
	require.NotNil(t, record.SuggestionID)
	assert.Equal(t, suggestion.ID, *record.SuggestionID)
}

func TestSubmitSuggestion_RequiresSuggestCapability(t *testing.T) {
	f := newSuggestionFixture(t)

	_, err := f.svc.SubmitSuggestion(context.Background(), outsiderID, "", f.planID, SubmitSuggestionInput{
		Title: "Anything",
		Type:  domain.SuggestOther,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSubmitSuggestion_AuditFailureCompensates(t *testing.T) {
	f := newSuggestionFixture(t)
	f.auditRepo.appendErr = errors.New("mongo down")

	_, err := f.svc.SubmitSuggestion(context.Background(), collaboratorID, "", f.planID, SubmitSuggestionInput{
		Title: "Swap lunch carbs",
		Type:  domain.SuggestModifyMeal,
	})
	require.ErrorIs(t, err, ErrAuditAppendFailed)
	assert.Empty(t, f.suggestionRepo.suggestions)
	assert.Len(t, f.suggestionRepo.deleted, 1)
}

func TestSuggestionLifecycle(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	approved, err := f.svc.ApproveSuggestion(ctx, ownerID, "Trainer One", suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionApproved, approved.Status)
	assert.Equal(t, ownerID, approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	applied, err := f.svc.ApplySuggestion(ctx, ownerID, "Trainer One", suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)

	// Applying never touches the plan itself.
	plan, err := f.planRepo.GetByID(ctx, f.planID)
	require.NoError(t, err)
	require.Len(t, plan.Meals, 1)
	assert.Equal(t, "Rice and chicken", plan.Meals[0].Name)

	// submit, approve, apply
	assert.Len(t, f.auditRepo.records, 3)
}

func TestRejectSuggestion(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	rejected, err := f.svc.RejectSuggestion(ctx, ownerID, "", suggestion.ID, "not aligned with goals")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionRejected, rejected.Status)
	assert.Equal(t, "not aligned with goals", rejected.RejectionReason)

	// Rejected is terminal.
	_, err = f.svc.ApproveSuggestion(ctx, ownerID, "", suggestion.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = f.svc.ApplySuggestion(ctx, ownerID, "", suggestion.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApplySuggestion_PendingFails(t *testing.T) {
	f := newSuggestionFixture(t)
	suggestion := f.submit(t)

	_, err := f.svc.ApplySuggestion(context.Background(), ownerID, "", suggestion.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	stored, getErr := f.suggestionRepo.GetByID(context.Background(), suggestion.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.SuggestionPending, stored.Status)
}

func TestTransition_LostRace(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	// Another actor moves the status between our read and our
	// conditional write; the lost race surfaces as a state error.
	f.suggestionRepo.transitionErr = repository.ErrPreconditionFailed

	_, err := f.svc.ApproveSuggestion(ctx, ownerID, "", suggestion.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestTransition_RequiresEditCapability(t *testing.T) {
	f := newSuggestionFixture(t)
	suggestion := f.submit(t)

	// The suggesting collaborator cannot approve their own proposal.
	_, err := f.svc.ApproveSuggestion(context.Background(), collaboratorID, "", suggestion.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestTransition_AuditFailureReverts(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	f.auditRepo.appendErr = errors.New("mongo down")
	_, err := f.svc.ApproveSuggestion(ctx, ownerID, "", suggestion.ID)
	require.ErrorIs(t, err, ErrAuditAppendFailed)

	stored, getErr := f.suggestionRepo.GetByID(ctx, suggestion.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.SuggestionPending, stored.Status)
}

func TestAddComment(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	comment, err := f.svc.AddComment(ctx, ownerID, "Trainer One", suggestion.ID, "Looks reasonable")
	require.NoError(t, err)
	assert.Equal(t, "Looks reasonable", comment.Body)
	assert.Equal(t, ownerID, comment.AuthorID)

	// Comments stay open after resolution.
	_, err = f.svc.RejectSuggestion(ctx, ownerID, "", suggestion.ID, "")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, collaboratorID, "", suggestion.ID, "Understood, will rework")
	require.NoError(t, err)

	stored, getErr := f.suggestionRepo.GetByID(ctx, suggestion.ID)
	require.NoError(t, getErr)
	assert.Len(t, stored.Comments, 2)
}

func TestAddComment_AuditFailureCompensates(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()
	suggestion := f.submit(t)

	f.auditRepo.appendErr = errors.New("mongo down")
	_, err := f.svc.AddComment(ctx, ownerID, "", suggestion.ID, "Looks reasonable")
	require.ErrorIs(t, err, ErrAuditAppendFailed)

	// The pushed comment must not survive the failed audit append.
	stored, getErr := f.suggestionRepo.GetByID(ctx, suggestion.ID)
	require.NoError(t, getErr)
	assert.Empty(t, stored.Comments)
}

func TestAddComment_Validation(t *testing.T) {
	f := newSuggestionFixture(t)
	suggestion := f.submit(t)

	_, err := f.svc.AddComment(context.Background(), ownerID, "", suggestion.ID, "")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.AddComment(context.Background(), outsiderID, "", suggestion.ID, "hi")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetSuggestion_NotFound(t *testing.T) {
	f := newSuggestionFixture(t)
	_, err := f.svc.GetSuggestion(context.Background(), ownerID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestListSuggestionsForPlan(t *testing.T) {
	f := newSuggestionFixture(t)
	f.submit(t)
	f.submit(t)

	suggestions, err := f.svc.ListSuggestionsForPlan(context.Background(), collaboratorID, f.planID)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)

	_, err = f.svc.ListSuggestionsForPlan(context.Background(), outsiderID, f.planID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
