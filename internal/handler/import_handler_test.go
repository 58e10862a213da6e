package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/middleware"
	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/service"
)

type importMaterialStoreMock struct {
	created []*models.Material
}

func (m *importMaterialStoreMock) Create(ctx context.Context, material *models.Material) error {
	m.created = append(m.created, material)
	return nil
}

func (m *importMaterialStoreMock) Update(ctx context.Context, material *models.Material) error {
	return nil
}

func (m *importMaterialStoreMock) FindByNameDistributorLocation(ctx context.Context, name, distributor, location string) (*models.Material, error) {
	return nil, sql.ErrNoRows
}

type importHistoryStoreMock struct{}

func (importHistoryStoreMock) Create(ctx context.Context, entry *models.PriceHistoryEntry) error {
	return nil
}

func multipartCSV(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("csv", "materials.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestImportHandlerBulkUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &importMaterialStoreMock{}
	svc := service.NewImportService(store, importHistoryStoreMock{}, nil, nil)
	handler := NewImportHandler(svc)

	csv := "name,location,manufacturer,productCategory,distributor,currentPrice\n" +
		"Starter Strip,DFW,Atlas,Flashing,ABC Supply,345.00\n" +
		"Bad Row,DFW,Atlas,Flashing,Unknown Vendor,12.00\n"
	body, contentType := multipartCSV(t, csv)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/materials/bulk-upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.BulkUpload(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 2, envelope.Data.Total)
	require.Equal(t, 1, envelope.Data.Success)
	require.Len(t, envelope.Data.Errors, 1)
	require.Equal(t, 3, envelope.Data.Errors[0].Row)
	require.Len(t, store.created, 1)
}

func TestImportHandlerBulkUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewImportService(&importMaterialStoreMock{}, importHistoryStoreMock{}, nil, nil)
	handler := NewImportHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/materials/bulk-upload", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.BulkUpload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
