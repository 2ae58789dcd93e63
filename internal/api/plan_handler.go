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

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs for API (Data Transfer Objects) ---

// MealEntryRequest defines one meal inside a plan payload.
type MealEntryRequest struct {
	ID       string  `json:"id" binding:"omitempty"` // Empty for new meals
	Name     string  `json:"name" binding:"required"`
	Slot     string  `json:"slot" binding:"required"`
	Calories float64 `json:"calories" binding:"omitempty,gte=0"`
	Protein  float64 `json:"protein" binding:"omitempty,gte=0"`
	Carbs    float64 `json:"carbs" binding:"omitempty,gte=0"`
	Fat      float64 `json:"fat" binding:"omitempty,gte=0"`
}

// CreatePlanRequest defines the expected JSON for creating a plan.
type CreatePlanRequest struct {
	ClientID    string             `json:"clientId" binding:"required"`
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Meals       []MealEntryRequest `json:"meals" binding:"omitempty,dive"`
}

// UpdateMealsRequest defines the expected JSON for replacing a plan's meals.
type UpdateMealsRequest struct {
	Meals []MealEntryRequest `json:"meals" binding:"required,dive"`
}

// MealEntryResponse is the DTO for one meal in a plan.
type MealEntryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slot     string  `json:"slot"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// PlanResponse is the DTO for returning plan details.
type PlanResponse struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"ownerId"`
	ClientID    string              `json:"clientId"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Meals       []MealEntryResponse `json:"meals"`
	IsActive    bool                `json:"isActive"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func mapMealRequests(reqs []MealEntryRequest) ([]domain.MealEntry, error) {
	meals := make([]domain.MealEntry, len(reqs))
	for i, r := range reqs {
		var id primitive.ObjectID
		if r.ID != "" {
			parsed, err := primitive.ObjectIDFromHex(r.ID)
			if err != nil {
				return nil, err
			}
			id = parsed
		}
		meals[i] = domain.MealEntry{
			ID:   id,
			Name: r.Name,
			Slot: domain.MealSlot(r.Slot),
			Macros: domain.Macros{
				Calories: r.Calories,
				Protein:  r.Protein,
				Carbs:    r.Carbs,
				Fat:      r.Fat,
			},
		}
	}
	return meals, nil
}

// MapPlanToResponse converts a domain.Plan to PlanResponse DTO.
func MapPlanToResponse(plan *domain.Plan) PlanResponse {
	if plan == nil {
		return PlanResponse{}
	}
	meals := make([]MealEntryResponse, len(plan.Meals))
	for i, m := range plan.Meals {
		meals[i] = MealEntryResponse{
			ID:       m.ID.Hex(),
			Name:     m.Name,
			Slot:     string(m.Slot),
			Calories: m.Macros.Calories,
			Protein:  m.Macros.Protein,
			Carbs:    m.Macros.Carbs,
			Fat:      m.Macros.Fat,
		}
	}
	return PlanResponse{
		ID:          plan.ID.Hex(),
		OwnerID:     plan.OwnerID,
		ClientID:    plan.ClientID,
		Name:        plan.Name,
		Description: plan.Description,
		Meals:       meals,
		IsActive:    plan.IsActive,
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}
}

// MapPlansToResponse converts a slice of domain.Plan to PlanResponse DTOs.
func MapPlansToResponse(plans []domain.Plan) []PlanResponse {
	responses := make([]PlanResponse, len(plans))
	for i, p := range plans {
		responses[i] = MapPlanToResponse(&p)
	}
	return responses
}

// --- Handler Methods ---

// CreatePlan godoc
// @Summary Create a nutrition plan
// @Description Creates a plan owned by the authenticated trainer.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body CreatePlanRequest true "Plan details"
// @Success 201 {object} PlanResponse "Plan created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ownerID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}

	meals, err := mapMealRequests(req.Meals)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid meal ID format.")
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), ownerID, service.CreatePlanInput{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Meals:       meals,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create plan")
		}
		return
	}

	c.JSON(http.StatusCreated, MapPlanToResponse(plan))
}

// GetPlan godoc
// @Summary Get a plan by ID
// @Description Retrieves a plan. The actor must own the plan or hold a grant with the view capability.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} PlanResponse
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
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

	plan, err := h.planService.GetPlan(c.Request.Context(), actorID, planID)
	if err != nil {
		respondPlanAccessError(c, err, "Failed to retrieve plan")
		return
	}

	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// ListMyPlans godoc
// @Summary List plans owned by the authenticated trainer
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanResponse
// @Router /plans [get]
func (h *PlanHandler) ListMyPlans(c *gin.Context) {
	ownerID, err := getActorIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify actor from token.")
		return
	}

	plans, err := h.planService.ListPlansForOwner(c.Request.Context(), ownerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list plans")
		return
	}

	c.JSON(http.StatusOK, MapPlansToResponse(plans))
}

// UpdateMeals godoc
// @Summary Replace a plan's meal list
// @Description Applies an explicit edit to the plan. The actor must own the plan or hold an effective grant with the edit capability; block-limited grants may only touch their allowed meals.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param meals body UpdateMealsRequest true "Replacement meal list"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/meals [put]
func (h *PlanHandler) UpdateMeals(c *gin.Context) {
	var req UpdateMealsRequest
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
	meals, err := mapMealRequests(req.Meals)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid meal ID format.")
		return
	}

	plan, err := h.planService.ApplyEdits(c.Request.Context(), actorID, planID, meals)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			respondPlanAccessError(c, err, "Failed to update plan meals")
		}
		return
	}

	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// respondPlanAccessError maps the shared plan lookup/authorization
// failures to HTTP statuses.
func respondPlanAccessError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, service.ErrAccessDenied):
		abortWithError(c, http.StatusForbidden, "You do not have access to this plan")
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
