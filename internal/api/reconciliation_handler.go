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

// ReconciliationHandler holds the reconciliation service dependency.
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ImportIntakeRequest defines the expected JSON for importing one
// client-day of normalized tracking-app data.
type ImportIntakeRequest struct {
	ClientID          string                    `json:"clientId" binding:"required"`
	SourceApp         string                    `json:"sourceApp" binding:"required"`
	Date              string                    `json:"date" binding:"required"` // YYYY-MM-DD
	CaloriesTotal     float64                   `json:"caloriesTotal" binding:"gte=0"`
	CaloriesBySlot    map[string]float64        `json:"caloriesBySlot"`
	Macros            *domain.Macros            `json:"macros"`
	DigestiveSymptoms []domain.DigestiveSymptom `json:"digestiveSymptoms"`
	Extras            *domain.IntakeExtras      `json:"extras"`
}

// CompareRequest selects the client-day to reconcile against the plan.
type CompareRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

// IntakeRecordResponse is the DTO for returning an imported record.
type IntakeRecordResponse struct {
	ID                string                    `json:"id"`
	PlanID            string                    `json:"planId"`
	ClientID          string                    `json:"clientId"`
	SourceApp         string                    `json:"sourceApp"`
	Date              string                    `json:"date"`
	CaloriesTotal     float64                   `json:"caloriesTotal"`
	CaloriesBySlot    map[string]float64        `json:"caloriesBySlot,omitempty"`
	Macros            *domain.Macros            `json:"macros,omitempty"`
	DigestiveSymptoms []domain.DigestiveSymptom `json:"digestiveSymptoms,omitempty"`
	Extras            *domain.IntakeExtras      `json:"extras,omitempty"`
	ImportedAt        time.Time                 `json:"importedAt"`
}

// ReconciliationResponse is the DTO for returning a stored
// reconciliation report, with the archive status of its JSON copy.
type ReconciliationResponse struct {
	ID                 string                        `json:"id"`
	PlanID             string                        `json:"planId"`
	ClientID           string                        `json:"clientId"`
	Date               string                        `json:"date"`
	CalorieComparison  domain.CalorieComparison      `json:"calorieComparison"`
	MacroComparisons   domain.MacroComparisons       `json:"macroComparisons"`
	PerMealComparisons []domain.MealSlotComparison   `json:"perMealComparisons"`
	DigestiveSymptoms  []domain.DigestiveSymptom     `json:"digestiveSymptoms"`
	Analysis           domain.ReconciliationAnalysis `json:"analysis"`
	SourceIntakeID     string                        `json:"sourceIntakeId"`
	Archived           bool                          `json:"archived"`
	GeneratedAt        time.Time                     `json:"generatedAt"`
}

// ReportURLResponse carries a presigned download URL for an archived report.
type ReportURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// MapIntakeToResponse converts a domain.ImportedIntakeRecord to its DTO.
func MapIntakeToResponse(rec *domain.ImportedIntakeRecord) IntakeRecordResponse {
	if rec == nil {
		return IntakeRecordResponse{}
	}
	var bySlot map[string]float64
	if rec.CaloriesBySlot != nil {
		bySlot = make(map[string]float64, len(rec.CaloriesBySlot))
		for slot, cals := range rec.CaloriesBySlot {
			bySlot[string(slot)] = cals
		}
	}
	return IntakeRecordResponse{
		ID:                rec.ID.Hex(),
		PlanID:            rec.PlanID.Hex(),
		ClientID:          rec.ClientID,
		SourceApp:         string(rec.SourceApp),
		Date:              rec.Date,
		CaloriesTotal:     rec.CaloriesTotal,
		CaloriesBySlot:    bySlot,
		Macros:            rec.Macros,
		DigestiveSymptoms: rec.DigestiveSymptoms,
		Extras:            rec.Extras,
		ImportedAt:        rec.ImportedAt,
	}
}

// MapIntakesToResponse converts a slice of intake records to DTOs.
func MapIntakesToResponse(records []domain.ImportedIntakeRecord) []IntakeRecordResponse {
	responses := make([]IntakeRecordResponse, len(records))
	for i, r := range records {
		responses[i] = MapIntakeToResponse(&r)
	}
	return responses
}

// MapReconciliationToResponse converts a domain.ReconciliationResult to its DTO.
func MapReconciliationToResponse(res *domain.ReconciliationResult, archived bool) ReconciliationResponse {
	if res == nil {
		return ReconciliationResponse{}
	}
	return ReconciliationResponse{
		ID:                 res.ID.Hex(),
		PlanID:             res.PlanID.Hex(),
		ClientID:           res.ClientID,
		Date:               res.Date,
		CalorieComparison:  res.CalorieComparison,
		MacroComparisons:   res.MacroComparisons,
		PerMealComparisons: res.PerMealComparisons,
		DigestiveSymptoms:  res.DigestiveSymptoms,
		Analysis:           res.Analysis,
		SourceIntakeID:     res.SourceIntakeID.Hex(),
		Archived:           archived,
		GeneratedAt:        res.GeneratedAt,
	}
}

// MapReconciliationsToResponse converts stored results to DTOs. A
// result read back from history is archived when it has a key.
func MapReconciliationsToResponse(results []domain.ReconciliationResult) []ReconciliationResponse {
	responses := make([]ReconciliationResponse, len(results))
	for i, r := range results {
		responses[i] = MapReconciliationToResponse(&r, r.ArchiveKey != "")
	}
	return responses
}

// --- Handler Methods ---

// ImportIntake godoc
// @Summary Import one client-day of tracking data
// @Description Stores a normalized intake record against the plan. Re-importing a date adds a new record; the latest one wins at comparison time.
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param intake body ImportIntakeRequest true "Normalized intake data"
// @Success 201 {object} IntakeRecordResponse "Intake imported"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/intake [post]
func (h *ReconciliationHandler) ImportIntake(c *gin.Context) {
	var req ImportIntakeRequest
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

	var bySlot map[domain.MealSlot]float64
	if req.CaloriesBySlot != nil {
		bySlot = make(map[domain.MealSlot]float64, len(req.CaloriesBySlot))
		for slot, cals := range req.CaloriesBySlot {
			bySlot[domain.MealSlot(slot)] = cals
		}
	}

	record, err := h.reconciliationService.ImportIntake(c.Request.Context(), actorID, planID, service.ImportIntakeInput{
		ClientID:          req.ClientID,
		SourceApp:         domain.SourceApp(req.SourceApp),
		Date:              req.Date,
		CaloriesTotal:     req.CaloriesTotal,
		CaloriesBySlot:    bySlot,
		Macros:            req.Macros,
		DigestiveSymptoms: req.DigestiveSymptoms,
		Extras:            req.Extras,
	})
	if err != nil {
		respondReconciliationError(c, err, "Failed to import intake data")
		return
	}

	c.JSON(http.StatusCreated, MapIntakeToResponse(record))
}

// ListIntake godoc
// @Summary List imported intake records for a plan
// @Tags Reconciliation
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} IntakeRecordResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/intake [get]
func (h *ReconciliationHandler) ListIntake(c *gin.Context) {
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

	records, err := h.reconciliationService.ListIntakeForPlan(c.Request.Context(), actorID, planID)
	if err != nil {
		respondReconciliationError(c, err, "Failed to list intake records")
		return
	}

	c.JSON(http.StatusOK, MapIntakesToResponse(records))
}

// Compare godoc
// @Summary Reconcile a plan against imported intake for one date
// @Description Generates the comparison report, stores it in the plan history and archives a JSON copy.
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param body body CompareRequest true "Date to reconcile"
// @Success 201 {object} ReconciliationResponse "Report generated"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found or plan has no meals"
// @Failure 422 {object} gin.H "No intake imported for the date"
// @Router /plans/{planId}/reconciliations [post]
func (h *ReconciliationHandler) Compare(c *gin.Context) {
	var req CompareRequest
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

	outcome, err := h.reconciliationService.ComparePlanToIntake(c.Request.Context(), actorID, planID, req.Date)
	if err != nil {
		respondReconciliationError(c, err, "Failed to generate reconciliation report")
		return
	}

	c.JSON(http.StatusCreated, MapReconciliationToResponse(outcome.Result, outcome.Archived))
}

// ListHistory godoc
// @Summary List reconciliation reports for a plan
// @Tags Reconciliation
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} ReconciliationResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/reconciliations [get]
func (h *ReconciliationHandler) ListHistory(c *gin.Context) {
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

	results, err := h.reconciliationService.ListHistoryForPlan(c.Request.Context(), actorID, planID)
	if err != nil {
		respondReconciliationError(c, err, "Failed to list reconciliation history")
		return
	}

	c.JSON(http.StatusOK, MapReconciliationsToResponse(results))
}

// GetReportURL godoc
// @Summary Get a presigned download URL for an archived report
// @Tags Reconciliation
// @Produce json
// @Security BearerAuth
// @Param resultId path string true "Reconciliation result ID"
// @Success 200 {object} ReportURLResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Result not found or not archived"
// @Router /reconciliations/{resultId}/report-url [get]
func (h *ReconciliationHandler) GetReportURL(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("resultId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid result ID format.")
		return
	}

	url, err := h.reconciliationService.GetReportDownloadURL(c.Request.Context(), actorID, resultID)
	if err != nil {
		respondReconciliationError(c, err, "Failed to generate download URL")
		return
	}

	c.JSON(http.StatusOK, ReportURLResponse{DownloadURL: url})
}

// DeleteReconciliation godoc
// @Summary Delete a reconciliation result and its archived report
// @Tags Reconciliation
// @Security BearerAuth
// @Param resultId path string true "Reconciliation result ID"
// @Success 204 "No content"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Result not found"
// @Router /reconciliations/{resultId} [delete]
func (h *ReconciliationHandler) DeleteReconciliation(c *gin.Context) {
	actorID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("resultId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid result ID format.")
		return
	}

	if err := h.reconciliationService.DeleteReconciliation(c.Request.Context(), actorID, resultID); err != nil {
		respondReconciliationError(c, err, "Failed to delete reconciliation result")
		return
	}

	c.Status(http.StatusNoContent)
}

// respondReconciliationError maps the reconciliation service sentinels
// to HTTP statuses.
func respondReconciliationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, service.ErrIntakeNotFound), errors.Is(err, service.ErrReconciliationNotFound):
		abortWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrPlanHasNoMeals):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAccessDenied):
		abortWithError(c, http.StatusForbidden, "You do not have access to this plan")
	case errors.Is(err, service.ErrMissingIntakeData):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
