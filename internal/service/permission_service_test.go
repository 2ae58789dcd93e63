package service

import (
	"alcyxob/diet-collab/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ownerID        = "trainer-1"
	collaboratorID = "nutritionist-1"
	outsiderID     = "stranger-1"
)

func newPermissionFixture(t *testing.T) (*fakePlanRepo, *fakeGrantRepo, *fakeAuditRepo, PermissionService, primitive.ObjectID) {
	t.Helper()
	planRepo := newFakePlanRepo()
	grantRepo := newFakeGrantRepo()
	auditRepo := &fakeAuditRepo{}
	svc := NewPermissionService(planRepo, grantRepo, auditRepo, zap.NewNop())

	planID, err := planRepo.Create(context.Background(), &domain.Plan{
		OwnerID:  ownerID,
		ClientID: "client-1",
		Name:     "Cutting phase",
		Meals:    []domain.MealEntry{{Name: "Oats", Slot: domain.SlotBreakfast}},
		IsActive: true,
	})
	require.NoError(t, err)
	return planRepo, grantRepo, auditRepo, svc, planID
}

func TestAssignPermission(t *testing.T) {
	_, _, auditRepo, svc, planID := newPermissionFixture(t)

	grant, err := svc.AssignPermission(context.Background(), ownerID, "Trainer One", planID, AssignPermissionInput{
		CollaboratorID:   collaboratorID,
		CollaboratorName: "Nutritionist One",
		GrantType:        domain.GrantSuggestion,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GrantSuggestion, grant.GrantType)
	assert.True(t, grant.Active)
	assert.True(t, grant.Capabilities.Suggest)
	assert.False(t, grant.Capabilities.Edit)
	assert.Equal(t, ownerID, grant.GrantedBy)

	require.Len(t, auditRepo.records, 1)
	record := auditRepo.records[0]
	assert.Equal(t, domain.AuditGranted, record.Action)
	assert.Equal(t, collaboratorID, record.CollaboratorID)
	require.NotNil(t, record.NewType)
	assert.Equal(t, domain.GrantSuggestion, *record.NewType)
}

func TestAssignPermission_Validation(t *testing.T) {
	_, _, _, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	_, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		GrantType: domain.GrantReadOnly,
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "missing collaborator")

	_, err = svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantType("superuser"),
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "unknown tier")

	from := time.Now().UTC()
	until := from.Add(-time.Hour)
	_, err = svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantReadOnly,
		ValidFrom:      &from,
		ValidUntil:     &until,
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "inverted validity window")
}

func TestAssignPermission_AccessDenied(t *testing.T) {
	_, _, _, svc, planID := newPermissionFixture(t)

	_, err := svc.AssignPermission(context.Background(), outsiderID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantReadOnly,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestAssignPermission_AuditFailureCompensates(t *testing.T) {
	_, grantRepo, auditRepo, svc, planID := newPermissionFixture(t)
	auditRepo.appendErr = errors.New("mongo down")

	_, err := svc.AssignPermission(context.Background(), ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantFullEdit,
	})
	require.ErrorIs(t, err, ErrAuditAppendFailed)

	// The created grant must not survive the failed audit append.
	assert.Empty(t, grantRepo.grants)
	assert.Len(t, grantRepo.deleted, 1)
}

func TestUpdatePermission_TierChangeRecomputesCapabilities(t *testing.T) {
	_, _, auditRepo, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	grant, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantReadOnly,
	})
	require.NoError(t, err)

	fullEdit := domain.GrantFullEdit
	updated, err := svc.UpdatePermission(ctx, ownerID, "", grant.ID, GrantPatch{GrantType: &fullEdit})
	require.NoError(t, err)
	assert.Equal(t, domain.GrantFullEdit, updated.GrantType)
	assert.True(t, updated.Capabilities.Edit)
	assert.True(t, updated.Capabilities.Reassign)

	require.Len(t, auditRepo.records, 2)
	record := auditRepo.records[1]
	assert.Equal(t, domain.AuditModified, record.Action)
	require.NotNil(t, record.PreviousType)
	assert.Equal(t, domain.GrantReadOnly, *record.PreviousType)
	require.NotNil(t, record.NewType)
	assert.Equal(t, domain.GrantFullEdit, *record.NewType)
}

func TestUpdatePermission_AuditFailureRestoresGrant(t *testing.T) {
	_, grantRepo, auditRepo, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	grant, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantReadOnly,
	})
	require.NoError(t, err)

	auditRepo.appendErr = errors.New("mongo down")
	fullEdit := domain.GrantFullEdit
	_, err = svc.UpdatePermission(ctx, ownerID, "", grant.ID, GrantPatch{GrantType: &fullEdit})
	require.ErrorIs(t, err, ErrAuditAppendFailed)

	restored, getErr := grantRepo.GetByID(ctx, grant.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.GrantReadOnly, restored.GrantType)
}

func TestRevokePermission(t *testing.T) {
	_, grantRepo, auditRepo, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	grant, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantSuggestion,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokePermission(ctx, ownerID, "", grant.ID, "engagement ended"))

	// Soft delete: the record survives with Active=false.
	stored, err := grantRepo.GetByID(ctx, grant.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.Len(t, auditRepo.records, 2)
	record := auditRepo.records[1]
	assert.Equal(t, domain.AuditRevoked, record.Action)
	assert.Equal(t, "engagement ended", record.Reason)

	// Re-revoking is a no-op: no error, no extra audit record.
	require.NoError(t, svc.RevokePermission(ctx, ownerID, "", grant.ID, "again"))
	assert.Len(t, auditRepo.records, 2)
}

func TestRevokePermission_NotFound(t *testing.T) {
	_, _, _, svc, _ := newPermissionFixture(t)
	err := svc.RevokePermission(context.Background(), ownerID, "", primitive.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrGrantNotFound)
}

func TestHasCapability(t *testing.T) {
	_, _, _, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	// No grant at all: false, not an error.
	has, err := svc.HasCapability(ctx, planID, collaboratorID, domain.CapabilityView)
	require.NoError(t, err)
	assert.False(t, has)

	grant, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantSuggestion,
	})
	require.NoError(t, err)

	has, err = svc.HasCapability(ctx, planID, collaboratorID, domain.CapabilitySuggest)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasCapability(ctx, planID, collaboratorID, domain.CapabilityEdit)
	require.NoError(t, err)
	assert.False(t, has)

	// Revoked grants hold nothing.
	require.NoError(t, svc.RevokePermission(ctx, ownerID, "", grant.ID, ""))
	has, err = svc.HasCapability(ctx, planID, collaboratorID, domain.CapabilitySuggest)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestReassignCapabilityDelegatesGovernance(t *testing.T) {
	_, _, _, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	// Full-edit includes reassign, so the collaborator can grant others.
	_, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantFullEdit,
	})
	require.NoError(t, err)

	_, err = svc.AssignPermission(ctx, collaboratorID, "", planID, AssignPermissionInput{
		CollaboratorID: "nutritionist-2",
		GrantType:      domain.GrantReadOnly,
	})
	assert.NoError(t, err)
}

func TestGetAuditHistory_RequiresAccess(t *testing.T) {
	_, _, _, svc, planID := newPermissionFixture(t)
	ctx := context.Background()

	_, err := svc.AssignPermission(ctx, ownerID, "", planID, AssignPermissionInput{
		CollaboratorID: collaboratorID,
		GrantType:      domain.GrantReadOnly,
	})
	require.NoError(t, err)

	records, err := svc.GetAuditHistory(ctx, ownerID, planID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// View capability is enough for the trail.
	records, err = svc.GetAuditHistory(ctx, collaboratorID, planID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = svc.GetAuditHistory(ctx, outsiderID, planID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
