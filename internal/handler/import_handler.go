package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cojovi/material-pricing-api/internal/service"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
	"github.com/cojovi/material-pricing-api/pkg/response"
)

// maxImportSize caps uploaded CSV files at 8 MiB.
const maxImportSize = 8 << 20

// ImportHandler wires CSV upload endpoints to the import service.
type ImportHandler struct {
	service *service.ImportService
}

// NewImportHandler creates a new handler.
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// BulkUpload godoc
// @Summary Bulk import materials
// @Description Upload a CSV of materials; rows are validated independently (admin only)
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param csv formData file true "Materials CSV"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /materials/bulk-upload [post]
func (h *ImportHandler) BulkUpload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, err := h.openUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	result, importErr := h.service.ImportMaterials(c.Request.Context(), file, claims.UserID)
	if importErr != nil {
		response.Error(c, importErr)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportHistory godoc
// @Summary Import historical price changes
// @Description Upload a CSV of historical price changes keyed by material name, distributor and location (admin only)
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param csv formData file true "Price history CSV"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /price-history/import [post]
func (h *ImportHandler) ImportHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, err := h.openUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	result, importErr := h.service.ImportPriceHistory(c.Request.Context(), file, claims.UserID)
	if importErr != nil {
		response.Error(c, importErr)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *ImportHandler) openUpload(c *gin.Context) (multipart.File, error) {
	header, err := c.FormFile("csv")
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no CSV file provided")
	}
	if header.Size > maxImportSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "CSV file too large")
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	return file, nil
}
