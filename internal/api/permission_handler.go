package api

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PermissionHandler holds the permission service dependency.
type PermissionHandler struct {
	permissionService service.PermissionService
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(permissionService service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// --- DTOs for API (Data Transfer Objects) ---

// GrantRestrictionsPayload mirrors domain.GrantRestrictions on the wire.
type GrantRestrictionsPayload struct {
	MealsOnly        bool     `json:"mealsOnly"`
	RequiresApproval bool     `json:"requiresApproval"`
	LimitedToBlocks  []string `json:"limitedToBlocks"`
}

// AssignGrantRequest defines the expected JSON for granting access to a plan.
type AssignGrantRequest struct {
	CollaboratorID    string                    `json:"collaboratorId" binding:"required"`
	CollaboratorName  string                    `json:"collaboratorName"`
	CollaboratorEmail string                    `json:"collaboratorEmail" binding:"omitempty,email"`
	GrantType         string                    `json:"grantType" binding:"required,oneof=read-only suggestion full-edit"`
	Restrictions      *GrantRestrictionsPayload `json:"restrictions"`
	ValidFrom         *time.Time                `json:"validFrom"`
	ValidUntil        *time.Time                `json:"validUntil"`
}

// UpdateGrantRequest defines the expected JSON for modifying a grant.
// Absent fields are left untouched.
type UpdateGrantRequest struct {
	CollaboratorName  *string                   `json:"collaboratorName"`
	CollaboratorEmail *string                   `json:"collaboratorEmail" binding:"omitempty,email"`
	GrantType         *string                   `json:"grantType" binding:"omitempty,oneof=read-only suggestion full-edit"`
	Restrictions      *GrantRestrictionsPayload `json:"restrictions"`
	ValidFrom         *time.Time                `json:"validFrom"`
	ValidUntil        *time.Time                `json:"validUntil"`
}

// RevokeGrantRequest carries the optional reason for a revocation.
type RevokeGrantRequest struct {
	Reason string `json:"reason"`
}

// GrantResponse is the DTO for returning grant details.
type GrantResponse struct {
	ID                string                    `json:"id"`
	PlanID            string                    `json:"planId"`
	CollaboratorID    string                    `json:"collaboratorId"`
	CollaboratorName  string                    `json:"collaboratorName,omitempty"`
	CollaboratorEmail string                    `json:"collaboratorEmail,omitempty"`
	GrantType         string                    `json:"grantType"`
	Capabilities      domain.Capabilities       `json:"capabilities"`
	Restrictions      *GrantRestrictionsPayload `json:"restrictions,omitempty"`
	Active            bool                      `json:"active"`
	ValidFrom         *time.Time                `json:"validFrom,omitempty"`
	ValidUntil        *time.Time                `json:"validUntil,omitempty"`
	GrantedBy         string                    `json:"grantedBy"`
	GrantedByName     string                    `json:"grantedByName,omitempty"`
	GrantedAt         time.Time                 `json:"grantedAt"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

// AuditRecordResponse is the DTO for one audit trail entry.
type AuditRecordResponse struct {
	ID              string    `json:"id"`
	PlanID          string    `json:"planId"`
	CollaboratorID  string    `json:"collaboratorId,omitempty"`
	Action          string    `json:"action"`
	PreviousType    string    `json:"previousType,omitempty"`
	NewType         string    `json:"newType,omitempty"`
	SuggestionID    string    `json:"suggestionId,omitempty"`
	PerformedBy     string    `json:"performedBy"`
	PerformedByName string    `json:"performedByName,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func mapRestrictionsPayload(p *GrantRestrictionsPayload) *domain.GrantRestrictions {
	if p == nil {
		return nil
	}
	return &domain.GrantRestrictions{
		MealsOnly:        p.MealsOnly,
		RequiresApproval: p.RequiresApproval,
		LimitedToBlocks:  p.LimitedToBlocks,
	}
}

// MapGrantToResponse converts a domain.PermissionGrant to GrantResponse DTO.
func MapGrantToResponse(grant *domain.PermissionGrant) GrantResponse {
	if grant == nil {
		return GrantResponse{}
	}
	var restrictions *GrantRestrictionsPayload
	if grant.Restrictions != nil {
		restrictions = &GrantRestrictionsPayload{
			MealsOnly:        grant.Restrictions.MealsOnly,
			RequiresApproval: grant.Restrictions.RequiresApproval,
			LimitedToBlocks:  grant.Restrictions.LimitedToBlocks,
		}
	}
	return GrantResponse{
		ID:                grant.ID.Hex(),
		PlanID:            grant.PlanID.Hex(),
		CollaboratorID:    grant.CollaboratorID,
		CollaboratorName:  grant.CollaboratorName,
		CollaboratorEmail: grant.CollaboratorEmail,
		GrantType:         string(grant.GrantType),
		Capabilities:      grant.Capabilities,
		Restrictions:      restrictions,
		Active:            grant.Active,
		ValidFrom:         grant.ValidFrom,
		ValidUntil:        grant.ValidUntil,
		GrantedBy:         grant.GrantedBy,
		GrantedByName:     grant.GrantedByName,
		GrantedAt:         grant.GrantedAt,
		UpdatedAt:         grant.UpdatedAt,
	}
}

// MapGrantsToResponse converts a slice of grants to their DTOs.
func MapGrantsToResponse(grants []domain.PermissionGrant) []GrantResponse {
	responses := make([]GrantResponse, len(grants))
	for i, g := range grants {
		responses[i] = MapGrantToResponse(&g)
	}
	return responses
}

// MapAuditRecordToResponse converts a domain.AuditRecord to its DTO.
func MapAuditRecordToResponse(rec *domain.AuditRecord) AuditRecordResponse {
	if rec == nil {
		return AuditRecordResponse{}
	}
	suggestionID := ""
	if rec.SuggestionID != nil {
		suggestionID = rec.SuggestionID.Hex()
	}
	previousType, newType := "", ""
	if rec.PreviousType != nil {
		previousType = string(*rec.PreviousType)
	}
	if rec.NewType != nil {
		newType = string(*rec.NewType)
	}
	return AuditRecordResponse{
		ID:              rec.ID.Hex(),
		PlanID:          rec.PlanID.Hex(),
		CollaboratorID:  rec.CollaboratorID,
		Action:          string(rec.Action),
		PreviousType:    previousType,
		NewType:         newType,
		SuggestionID:    suggestionID,
		PerformedBy:     rec.PerformedBy,
		PerformedByName: rec.PerformedByName,
		Reason:          rec.Reason,
		Timestamp:       rec.Timestamp,
	}
}

// MapAuditRecordsToResponse converts a slice of audit records to DTOs.
func MapAuditRecordsToResponse(records []domain.AuditRecord) []AuditRecordResponse {
	responses := make([]AuditRecordResponse, len(records))
	for i, r := range records {
		responses[i] = MapAuditRecordToResponse(&r)
	}
	return responses
}

// --- Handler Methods ---

// AssignGrant godoc
// @Summary Grant a collaborator access to a plan
// @Description Creates a permission grant. The actor must own the plan or hold the reassign capability.
// @Tags Permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param grant body AssignGrantRequest true "Grant details"
// @Success 201 {object} GrantResponse "Grant created successfully"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans/{planId}/grants [post]
func (h *PermissionHandler) AssignGrant(c *gin.Context) {
	var req AssignGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	grant, err := h.permissionService.AssignPermission(
		c.Request.Context(),
		actorID,
		getActorNameFromContext(c),
		planID,
		service.AssignPermissionInput{
			CollaboratorID:    req.CollaboratorID,
			CollaboratorName:  req.CollaboratorName,
			CollaboratorEmail: req.CollaboratorEmail,
			GrantType:         domain.GrantType(req.GrantType),
			Restrictions:      mapRestrictionsPayload(req.Restrictions),
			ValidFrom:         req.ValidFrom,
			ValidUntil:        req.ValidUntil,
		},
	)
	if err != nil {
		respondGovernanceError(c, err, "Failed to assign permission")
		return
	}

	c.JSON(http.StatusCreated, MapGrantToResponse(grant))
}

// ListGrants godoc
// @Summary List active grants on a plan
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} GrantResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/grants [get]
func (h *PermissionHandler) ListGrants(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	grants, err := h.permissionService.ListGrantsForPlan(c.Request.Context(), actorID, planID)
	if err != nil {
		respondGovernanceError(c, err, "Failed to list grants")
		return
	}

	c.JSON(http.StatusOK, MapGrantsToResponse(grants))
}

// GetCollaboratorGrant godoc
// @Summary Get the effective grant for one collaborator on a plan
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param collaboratorId path string true "Collaborator ID"
// @Success 200 {object} GrantResponse
// @Failure 404 {object} gin.H "Grant not found"
// @Router /plans/{planId}/grants/collaborator/{collaboratorId} [get]
func (h *PermissionHandler) GetCollaboratorGrant(c *gin.Context) {
	if _, err := getActorIDFromContext(c); err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}
	collaboratorID := c.Param("collaboratorId")

	grant, err := h.permissionService.GetGrantForCollaborator(c.Request.Context(), planID, collaboratorID)
	if err != nil {
		if errors.Is(err, service.ErrGrantNotFound) {
			abortWithError(c, http.StatusNotFound, "No active grant for this collaborator")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve grant")
		}
		return
	}

	c.JSON(http.StatusOK, MapGrantToResponse(grant))
}

// UpdateGrant godoc
// @Summary Modify an existing grant
// @Description Patches the grant; a tier change recomputes the capability set. Audited.
// @Tags Permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "Grant ID"
// @Param patch body UpdateGrantRequest true "Fields to change"
// @Success 200 {object} GrantResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Grant not found"
// @Router /grants/{grantId} [patch]
func (h *PermissionHandler) UpdateGrant(c *gin.Context) {
	var req UpdateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	grantID, err := primitive.ObjectIDFromHex(c.Param("grantId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid grant ID format.")
		return
	}

	patch := service.GrantPatch{
		CollaboratorName:  req.CollaboratorName,
		CollaboratorEmail: req.CollaboratorEmail,
		Restrictions:      mapRestrictionsPayload(req.Restrictions),
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
	}
	if req.GrantType != nil {
		grantType := domain.GrantType(*req.GrantType)
		patch.GrantType = &grantType
	}

	grant, err := h.permissionService.UpdatePermission(c.Request.Context(), actorID, getActorNameFromContext(c), grantID, patch)
	if err != nil {
		respondGovernanceError(c, err, "Failed to update permission")
		return
	}

	c.JSON(http.StatusOK, MapGrantToResponse(grant))
}

// RevokeGrant godoc
// @Summary Revoke a grant
// @Description Deactivates the grant, keeping the record and its audit trail. Revoking an already revoked grant is a no-op.
// @Tags Permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "Grant ID"
// @Param body body RevokeGrantRequest false "Optional revocation reason"
// @Success 204 "Grant revoked"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Grant not found"
// @Router /grants/{grantId} [delete]
func (h *PermissionHandler) RevokeGrant(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	grantID, err := primitive.ObjectIDFromHex(c.Param("grantId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid grant ID format.")
		return
	}

	// Body is optional on DELETE
	var req RevokeGrantRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.permissionService.RevokePermission(c.Request.Context(), actorID, getActorNameFromContext(c), grantID, req.Reason); err != nil {
		respondGovernanceError(c, err, "Failed to revoke permission")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAuditHistory godoc
// @Summary Get the permission audit trail for a plan
// @Tags Permissions
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} AuditRecordResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/audit [get]
func (h *PermissionHandler) GetAuditHistory(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	records, err := h.permissionService.GetAuditHistory(c.Request.Context(), actorID, planID)
	if err != nil {
		respondGovernanceError(c, err, "Failed to retrieve audit history")
		return
	}

	c.JSON(http.StatusOK, MapAuditRecordsToResponse(records))
}

// respondGovernanceError maps the permission service sentinels to
// HTTP statuses.
func respondGovernanceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, service.ErrGrantNotFound):
		abortWithError(c, http.StatusNotFound, "Permission grant not found")
	case errors.Is(err, service.ErrAccessDenied):
		abortWithError(c, http.StatusForbidden, "You may not manage permissions on this plan")
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
