package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studomat-dev/studomat-api/internal/models"
	"github.com/studomat-dev/studomat-api/internal/service"
	appErrors "github.com/studomat-dev/studomat-api/pkg/errors"
	"github.com/studomat-dev/studomat-api/pkg/response"
)

// DocumentHandler exposes the enrollment-document endpoints.
type DocumentHandler struct {
	documents   *service.DocumentService
	leaderboard *service.LeaderboardService
}

// NewDocumentHandler constructs DocumentHandler. Leaderboard is optional.
func NewDocumentHandler(documents *service.DocumentService, leaderboard *service.LeaderboardService) *DocumentHandler {
	return &DocumentHandler{documents: documents, leaderboard: leaderboard}
}

// Upload godoc
// @Summary Upload an enrollment document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Document type"
// @Param file formData file true "PDF document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docType := models.DocumentType(c.PostForm("type"))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	doc, err := h.documents.Upload(c.Request.Context(), claims.StudentID, service.UploadDocumentInput{
		Type:     docType,
		Filename: fileHeader.Filename,
		Mime:     fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Content:  src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List the authenticated student's uploaded documents
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	documents, err := h.documents.List(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, nil)
}

// Download godoc
// @Summary Download one of the authenticated student's uploads
// @Tags Documents
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, data, err := h.documents.Download(c.Request.Context(), claims.StudentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Mime, doc.Filename, data)
}

// Submit godoc
// @Summary Submit uploaded documents for the enrollment step
// @Description Accept the latest upload of each required type in one step
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/submit [post]
func (h *DocumentHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.documents.Submit(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Completed && h.leaderboard != nil {
		h.leaderboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Template godoc
// @Summary Download a pre-filled document template
// @Tags Documents
// @Produce application/pdf
// @Param type path string true "Document type"
// @Success 200 {file} binary
// @Router /documents/templates/{type} [get]
func (h *DocumentHandler) Template(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docType := models.DocumentType(c.Param("type"))
	data, filename, err := h.documents.Template(c.Request.Context(), claims.StudentID, docType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, "application/pdf", filename, data)
}
