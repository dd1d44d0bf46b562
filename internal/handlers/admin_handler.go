package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/utils"
)

// AdminHandler serves the recruitment board: listing applications, moving them
// through review statuses and maintaining the question bank.
type AdminHandler struct {
	BaseHandler
	applicationService services.ApplicationService
	importService      services.QuestionImportService
}

func NewAdminHandler(
	applicationService services.ApplicationService,
	importService services.QuestionImportService,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:        NewBaseHandler(logger),
		applicationService: applicationService,
		importService:      importService,
	}
}

type scheduleInterviewRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Notes       *string   `json:"notes"`
}

type rejectRequest struct {
	Notes *string `json:"notes"`
}

// ListApplications returns the filtered recruitment board.
// @Summary List applications
// @Tags admin
// @Produce json
// @Param status query string false "Filter by status"
// @Param city query string false "Filter by city"
// @Param step query int false "Filter by wizard step"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} SuccessResponse
// @Router /admin/applications [get]
func (h *AdminHandler) ListApplications(c *gin.Context) {
	filters := repositories.ApplicationFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if status := c.Query("status"); status != "" {
		s := models.ApplicationStatus(status)
		filters.Status = &s
	}
	if city := c.Query("city"); city != "" {
		filters.City = &city
	}
	if stepStr := c.Query("step"); stepStr != "" {
		step, err := strconv.Atoi(stepStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid step filter"})
			return
		}
		filters.Step = &step
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	apps, total, err := h.applicationService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"total":        total,
		"limit":        filters.Limit,
		"offset":       filters.Offset,
	})
}

// VerifyDocuments marks an application's documents as reviewed.
// @Summary Verify documents
// @Tags admin
// @Param id path string true "Application ID"
// @Success 204
// @Failure 422 {object} ErrorResponse
// @Router /admin/applications/{id}/verify-documents [post]
func (h *AdminHandler) VerifyDocuments(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.applicationService.VerifyDocuments(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ScheduleInterview records the interview slot and moves the application to
// the interview status.
// @Summary Schedule interview
// @Tags admin
// @Accept json
// @Param id path string true "Application ID"
// @Success 204
// @Failure 422 {object} ErrorResponse
// @Router /admin/applications/{id}/interview [post]
func (h *AdminHandler) ScheduleInterview(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req scheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.applicationService.ScheduleInterview(c.Request.Context(), id, req.ScheduledAt, req.Notes); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Activate marks the candidate as hired.
// @Summary Activate candidate
// @Tags admin
// @Param id path string true "Application ID"
// @Success 204
// @Failure 422 {object} ErrorResponse
// @Router /admin/applications/{id}/activate [post]
func (h *AdminHandler) Activate(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.applicationService.Activate(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reject declines the application.
// @Summary Reject application
// @Tags admin
// @Accept json
// @Param id path string true "Application ID"
// @Success 204
// @Failure 422 {object} ErrorResponse
// @Router /admin/applications/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	if err := h.applicationService.Reject(c.Request.Context(), id, req.Notes); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportQuestions loads the question bank from an uploaded xlsx workbook.
// @Summary Import test questions
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} models.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Router /admin/questions/import [post]
func (h *AdminHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Could not read file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	summary, err := h.importService.ImportXLSX(c.Request.Context(), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportAnswers downloads a candidate's graded answer sheet as xlsx.
// @Summary Export answer sheet
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Application ID"
// @Success 200 {file} binary
// @Router /admin/applications/{id}/answers/export [get]
func (h *AdminHandler) ExportAnswers(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	data, err := h.importService.ExportAnswersXLSX(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="answers_`+id+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
