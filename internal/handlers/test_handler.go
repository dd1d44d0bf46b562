package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

type selectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

type advanceRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// StartTest begins or resumes the caller's timed attempt.
// @Summary Start qualification test
// @Tags test
// @Produce json
// @Success 200 {object} services.TestStateResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /test/start [post]
func (h *TestHandler) StartTest(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	state, err := h.testService.StartTest(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SelectAnswer records the caller's choice for one question.
// @Summary Select answer
// @Tags test
// @Accept json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /test/answers [put]
func (h *TestHandler) SelectAnswer(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req selectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.testService.SelectAnswer(c.Request.Context(), userID, req.QuestionID, req.Answer); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Advance moves the question cursor forward or backward.
// @Summary Move question cursor
// @Tags test
// @Accept json
// @Produce json
// @Success 200 {object} services.TestStateResponse
// @Router /test/advance [post]
func (h *TestHandler) Advance(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	state, err := h.testService.Advance(c.Request.Context(), userID, req.Delta)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SubmitTest commits the caller's attempt and returns the graded result.
// Submitting after the countdown fired returns the timed-out result.
// @Summary Submit qualification test
// @Tags test
// @Produce json
// @Success 200 {object} services.TestResultResponse
// @Failure 409 {object} ErrorResponse
// @Router /test/submit [post]
func (h *TestHandler) SubmitTest(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.testService.SubmitTest(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TimeRemaining reports whole seconds left on the countdown.
// @Summary Get remaining test time
// @Tags test
// @Produce json
// @Success 200 {object} map[string]int
// @Router /test/time-remaining [get]
func (h *TestHandler) TimeRemaining(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	remaining, err := h.testService.TimeRemaining(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_remaining": remaining})
}
