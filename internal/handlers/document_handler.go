package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/utils"
)

type DocumentHandler struct {
	BaseHandler
	documentService services.DocumentService
}

func NewDocumentHandler(documentService services.DocumentService, logger utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:     NewBaseHandler(logger),
		documentService: documentService,
	}
}

// Upload stores one candidate document and records its URL.
// @Summary Upload document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Document kind" Enums(diploma, medical_book, passport, photo)
// @Param file formData file true "PDF, JPG or PNG up to 10MB"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /documents/{kind} [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	kind := models.DocumentKind(c.Param("kind"))

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

	url, err := h.documentService.Upload(c.Request.Context(), userID, kind,
		fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Document uploaded",
		Data:    gin.H{"url": url, "kind": kind},
	})
}

// Remove clears the recorded URL for one document kind.
// @Summary Remove document
// @Tags documents
// @Param kind path string true "Document kind"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /documents/{kind} [delete]
func (h *DocumentHandler) Remove(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	kind := models.DocumentKind(c.Param("kind"))
	if err := h.documentService.Remove(c.Request.Context(), userID, kind); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
