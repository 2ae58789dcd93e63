package api

import (
	"alcyxob/diet-collab/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	permissionService service.PermissionService,
	suggestionService service.SuggestionService,
	reconciliationService service.ReconciliationService,
) {

	planHandler := NewPlanHandler(planService)
	permissionHandler := NewPermissionHandler(permissionService)
	suggestionHandler := NewSuggestionHandler(suggestionService)
	reconciliationHandler := NewReconciliationHandler(reconciliationService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.GET("/me", func(c *gin.Context) {
			actorID, err := getActorIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get actor ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"actorId": actorID, "name": getActorNameFromContext(c)})
		})

		// --- Plan Routes ---
		planGroup := apiV1.Group("/plans")
		{
			planGroup.POST("", planHandler.CreatePlan)
			planGroup.GET("", planHandler.ListMyPlans)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.PUT("/:planId/meals", planHandler.UpdateMeals)

			// Permission governance, scoped to one plan
			planGroup.POST("/:planId/grants", permissionHandler.AssignGrant)
			planGroup.GET("/:planId/grants", permissionHandler.ListGrants)
			planGroup.GET("/:planId/grants/collaborator/:collaboratorId", permissionHandler.GetCollaboratorGrant)
			planGroup.GET("/:planId/audit", permissionHandler.GetAuditHistory)

			// Suggestion workflow entry points
			planGroup.POST("/:planId/suggestions", suggestionHandler.SubmitSuggestion)
			planGroup.GET("/:planId/suggestions", suggestionHandler.ListSuggestions)

			// Intake import and plan-vs-reality reconciliation
			planGroup.POST("/:planId/intake", reconciliationHandler.ImportIntake)
			planGroup.GET("/:planId/intake", reconciliationHandler.ListIntake)
			planGroup.POST("/:planId/reconciliations", reconciliationHandler.Compare)
			planGroup.GET("/:planId/reconciliations", reconciliationHandler.ListHistory)
		}

		// --- Grant Routes (addressed by grant ID) ---
		grantGroup := apiV1.Group("/grants")
		{
			grantGroup.PATCH("/:grantId", permissionHandler.UpdateGrant)
			grantGroup.DELETE("/:grantId", permissionHandler.RevokeGrant)
		}

		// --- Suggestion Routes (addressed by suggestion ID) ---
		suggestionGroup := apiV1.Group("/suggestions")
		{
			suggestionGroup.GET("/:suggestionId", suggestionHandler.GetSuggestion)
			suggestionGroup.POST("/:suggestionId/approve", suggestionHandler.ApproveSuggestion)
			suggestionGroup.POST("/:suggestionId/reject", suggestionHandler.RejectSuggestion)
			suggestionGroup.POST("/:suggestionId/apply", suggestionHandler.ApplySuggestion)
			suggestionGroup.POST("/:suggestionId/comments", suggestionHandler.AddComment)
		}

		// --- Reconciliation Routes (addressed by result ID) ---
		reconciliationGroup := apiV1.Group("/reconciliations")
		{
			reconciliationGroup.GET("/:resultId/report-url", reconciliationHandler.GetReportURL)
			reconciliationGroup.DELETE("/:resultId", reconciliationHandler.DeleteReconciliation)
		}
	}
}
