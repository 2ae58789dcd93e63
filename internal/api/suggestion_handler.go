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

// SuggestionHandler holds the suggestion service dependency.
type SuggestionHandler struct {
	suggestionService service.SuggestionService
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(suggestionService service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

// --- DTOs for API (Data Transfer Objects) ---

// SubmitSuggestionRequest defines the expected JSON for a new suggestion.
type SubmitSuggestionRequest struct {
	Title       string                    `json:"title" binding:"required"`
	Description string                    `json:"description"`
	Type        string                    `json:"type" binding:"required,oneof=modify-meal substitute-meal adjust-macros add-meal remove-meal change-schedule other"`
	Details     *domain.SuggestionDetails `json:"details"`
}

// RejectSuggestionRequest carries the optional rejection reason.
type RejectSuggestionRequest struct {
	Reason string `json:"reason"`
}

// AddCommentRequest defines the expected JSON for commenting on a suggestion.
type AddCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// SuggestionResponse is the DTO for returning suggestion details.
type SuggestionResponse struct {
	ID               string                     `json:"id"`
	PlanID           string                     `json:"planId"`
	CollaboratorID   string                     `json:"collaboratorId"`
	CollaboratorName string                     `json:"collaboratorName,omitempty"`
	Type             string                     `json:"type"`
	Title            string                     `json:"title"`
	Description      string                     `json:"description,omitempty"`
	Details          *domain.SuggestionDetails  `json:"details,omitempty"`
	Status           string                     `json:"status"`
	ApprovedBy       string                     `json:"approvedBy,omitempty"`
	ApprovedByName   string                     `json:"approvedByName,omitempty"`
	ApprovedAt       *time.Time                 `json:"approvedAt,omitempty"`
	RejectedBy       string                     `json:"rejectedBy,omitempty"`
	RejectedAt       *time.Time                 `json:"rejectedAt,omitempty"`
	RejectionReason  string                     `json:"rejectionReason,omitempty"`
	AppliedBy        string                     `json:"appliedBy,omitempty"`
	AppliedAt        *time.Time                 `json:"appliedAt,omitempty"`
	Comments         []domain.SuggestionComment `json:"comments"`
	CreatedAt        time.Time                  `json:"createdAt"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

// MapSuggestionToResponse converts a domain.Suggestion to SuggestionResponse DTO.
func MapSuggestionToResponse(s *domain.Suggestion) SuggestionResponse {
	if s == nil {
		return SuggestionResponse{}
	}
	comments := s.Comments
	if comments == nil {
		comments = []domain.SuggestionComment{}
	}
	return SuggestionResponse{
		ID:               s.ID.Hex(),
		PlanID:           s.PlanID.Hex(),
		CollaboratorID:   s.CollaboratorID,
		CollaboratorName: s.CollaboratorName,
		Type:             string(s.Type),
		Title:            s.Title,
		Description:      s.Description,
		Details:          s.Details,
		Status:           string(s.Status),
		ApprovedBy:       s.ApprovedBy,
		ApprovedByName:   s.ApprovedByName,
		ApprovedAt:       s.ApprovedAt,
		RejectedBy:       s.RejectedBy,
		RejectedAt:       s.RejectedAt,
		RejectionReason:  s.RejectionReason,
		AppliedBy:        s.AppliedBy,
		AppliedAt:        s.AppliedAt,
		Comments:         comments,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// MapSuggestionsToResponse converts a slice of suggestions to their DTOs.
func MapSuggestionsToResponse(suggestions []domain.Suggestion) []SuggestionResponse {
	responses := make([]SuggestionResponse, len(suggestions))
	for i, s := range suggestions {
		responses[i] = MapSuggestionToResponse(&s)
	}
	return responses
}

// --- Handler Methods ---

// SubmitSuggestion godoc
// @Summary Submit a suggestion on a plan
// @Description Creates a pending suggestion. The actor needs the suggest capability on the plan.
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param suggestion body SubmitSuggestionRequest true "Suggestion details"
// @Success 201 {object} SuggestionResponse "Suggestion submitted"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/suggestions [post]
func (h *SuggestionHandler) SubmitSuggestion(c *gin.Context) {
	var req SubmitSuggestionRequest
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

	suggestion, err := h.suggestionService.SubmitSuggestion(
		c.Request.Context(),
		actorID,
		getActorNameFromContext(c),
		planID,
		service.SubmitSuggestionInput{
			Title:       req.Title,
			Description: req.Description,
			Type:        domain.SuggestionType(req.Type),
			Details:     req.Details,
		},
	)
	if err != nil {
		respondSuggestionError(c, err, "Failed to submit suggestion")
		return
	}

	c.JSON(http.StatusCreated, MapSuggestionToResponse(suggestion))
}

// ListSuggestions godoc
// @Summary List suggestions on a plan
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} SuggestionResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/suggestions [get]
func (h *SuggestionHandler) ListSuggestions(c *gin.Context) {
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

	suggestions, err := h.suggestionService.ListSuggestionsForPlan(c.Request.Context(), actorID, planID)
	if err != nil {
		respondSuggestionError(c, err, "Failed to list suggestions")
		return
	}

	c.JSON(http.StatusOK, MapSuggestionsToResponse(suggestions))
}

// GetSuggestion godoc
// @Summary Get a suggestion by ID
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param suggestionId path string true "Suggestion ID"
// @Success 200 {object} SuggestionResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Suggestion not found"
// @Router /suggestions/{suggestionId} [get]
func (h *SuggestionHandler) GetSuggestion(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	suggestionID, err := primitive.ObjectIDFromHex(c.Param("suggestionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid suggestion ID format.")
		return
	}

	suggestion, err := h.suggestionService.GetSuggestion(c.Request.Context(), actorID, suggestionID)
	if err != nil {
		respondSuggestionError(c, err, "Failed to retrieve suggestion")
		return
	}

	c.JSON(http.StatusOK, MapSuggestionToResponse(suggestion))
}

// ApproveSuggestion godoc
// @Summary Approve a pending suggestion
// @Description Moves the suggestion to approved. Only pending suggestions can be approved.
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param suggestionId path string true "Suggestion ID"
// @Success 200 {object} SuggestionResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Suggestion not found"
// @Failure 409 {object} gin.H "Suggestion is not pending"
// @Router /suggestions/{suggestionId}/approve [post]
func (h *SuggestionHandler) ApproveSuggestion(c *gin.Context) {
	h.runTransition(c, func(actorID, actorName string, id primitive.ObjectID) (*domain.Suggestion, error) {
		return h.suggestionService.ApproveSuggestion(c.Request.Context(), actorID, actorName, id)
	})
}

// RejectSuggestion godoc
// @Summary Reject a pending suggestion
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param suggestionId path string true "Suggestion ID"
// @Param body body RejectSuggestionRequest false "Optional rejection reason"
// @Success 200 {object} SuggestionResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Suggestion not found"
// @Failure 409 {object} gin.H "Suggestion is not pending"
// @Router /suggestions/{suggestionId}/reject [post]
func (h *SuggestionHandler) RejectSuggestion(c *gin.Context) {
	var req RejectSuggestionRequest
	_ = c.ShouldBindJSON(&req)

	h.runTransition(c, func(actorID, actorName string, id primitive.ObjectID) (*domain.Suggestion, error) {
		return h.suggestionService.RejectSuggestion(c.Request.Context(), actorID, actorName, id, req.Reason)
	})
}

// ApplySuggestion godoc
// @Summary Mark an approved suggestion as applied
// @Description Marks the suggestion consumed. The plan itself is edited through the plan endpoints.
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param suggestionId path string true "Suggestion ID"
// @Success 200 {object} SuggestionResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Suggestion not found"
// @Failure 409 {object} gin.H "Suggestion is not approved"
// @Router /suggestions/{suggestionId}/apply [post]
func (h *SuggestionHandler) ApplySuggestion(c *gin.Context) {
	h.runTransition(c, func(actorID, actorName string, id primitive.ObjectID) (*domain.Suggestion, error) {
		return h.suggestionService.ApplySuggestion(c.Request.Context(), actorID, actorName, id)
	})
}

// AddComment godoc
// @Summary Comment on a suggestion
// @Description Appends a comment. Allowed in any suggestion state for actors with the comment capability.
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param suggestionId path string true "Suggestion ID"
// @Param comment body AddCommentRequest true "Comment body"
// @Success 201 {object} domain.SuggestionComment
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Suggestion not found"
// @Router /suggestions/{suggestionId}/comments [post]
func (h *SuggestionHandler) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	suggestionID, err := primitive.ObjectIDFromHex(c.Param("suggestionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid suggestion ID format.")
		return
	}

	comment, err := h.suggestionService.AddComment(c.Request.Context(), actorID, getActorNameFromContext(c), suggestionID, req.Body)
	if err != nil {
		respondSuggestionError(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// runTransition shares the parse/authorize/respond flow of the three
// state-change endpoints.
func (h *SuggestionHandler) runTransition(c *gin.Context, op func(actorID, actorName string, id primitive.ObjectID) (*domain.Suggestion, error)) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	suggestionID, err := primitive.ObjectIDFromHex(c.Param("suggestionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid suggestion ID format.")
		return
	}

	suggestion, err := op(actorID, getActorNameFromContext(c), suggestionID)
	if err != nil {
		respondSuggestionError(c, err, "Failed to change suggestion state")
		return
	}

	c.JSON(http.StatusOK, MapSuggestionToResponse(suggestion))
}

// respondSuggestionError maps the suggestion service sentinels to
// HTTP statuses.
func respondSuggestionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, service.ErrSuggestionNotFound):
		abortWithError(c, http.StatusNotFound, "Suggestion not found")
	case errors.Is(err, service.ErrAccessDenied):
		abortWithError(c, http.StatusForbidden, "You do not have access to this suggestion")
	case errors.Is(err, service.ErrInvalidStateTransition):
		abortWithError(c, http.StatusConflict, "Suggestion state does not allow this operation")
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
