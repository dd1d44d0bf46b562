package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/utils"
)

type ApplicationHandler struct {
	BaseHandler
	applicationService services.ApplicationService
}

func NewApplicationHandler(applicationService services.ApplicationService, logger utils.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		BaseHandler:        NewBaseHandler(logger),
		applicationService: applicationService,
	}
}

// GetMyApplication returns the caller's application, or an unsaved draft when
// they have not started the wizard yet.
// @Summary Get own application
// @Tags applications
// @Produce json
// @Success 200 {object} models.NurseApplication
// @Failure 401 {object} ErrorResponse
// @Router /applications/me [get]
func (h *ApplicationHandler) GetMyApplication(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	email, _ := c.Get("user_email")

	app, err := h.applicationService.GetOrCreate(c.Request.Context(), userID, email.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// CompleteStep merges a wizard step payload into the caller's application.
// Step 1 carries the questionnaire, step 2 the document references; the test
// and interview steps are driven by their own endpoints.
// @Summary Complete wizard step
// @Tags applications
// @Accept json
// @Produce json
// @Param step path int true "Wizard step (1 or 2)"
// @Success 200 {object} models.NurseApplication
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /applications/steps/{step} [post]
func (h *ApplicationHandler) CompleteStep(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid step",
			Details: "step must be a number",
		})
		return
	}

	var app *models.NurseApplication
	switch step {
	case models.StepQuestionnaire:
		var req services.QuestionnaireRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
		app, err = h.applicationService.CompleteQuestionnaire(c.Request.Context(), userID, &req)
	case models.StepDocuments:
		var req services.DocumentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
		app, err = h.applicationService.CompleteDocuments(c.Request.Context(), userID, &req)
	default:
		h.handleServiceError(c, services.ErrInvalidStep)
		return
	}

	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}
