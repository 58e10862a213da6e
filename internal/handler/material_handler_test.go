package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/middleware"
	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/service"
)

type materialStoreMock struct {
	materials map[string]*models.Material
	history   []*models.PriceHistoryEntry
}

func (m *materialStoreMock) List(ctx context.Context) ([]models.Material, error) {
	out := make([]models.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		out = append(out, *mat)
	}
	return out, nil
}

func (m *materialStoreMock) FindByID(ctx context.Context, id string) (*models.Material, error) {
	mat, ok := m.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *mat
	return &clone, nil
}

func (m *materialStoreMock) Search(ctx context.Context, term string, limit int) ([]models.Material, error) {
	return nil, nil
}

func (m *materialStoreMock) Create(ctx context.Context, material *models.Material) error {
	material.ID = "mat-created"
	m.materials[material.ID] = material
	return nil
}

func (m *materialStoreMock) Update(ctx context.Context, material *models.Material) error {
	m.materials[material.ID] = material
	return nil
}

func (m *materialStoreMock) UpdateWithHistory(ctx context.Context, material *models.Material, entry *models.PriceHistoryEntry) error {
	m.materials[material.ID] = material
	m.history = append(m.history, entry)
	return nil
}

func (m *materialStoreMock) Delete(ctx context.Context, id string) error {
	if _, ok := m.materials[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.materials, id)
	return nil
}

type historyListerMock struct{}

func (historyListerMock) ListByMaterial(ctx context.Context, materialID string, days int) ([]models.PriceHistoryEntry, error) {
	return nil, nil
}

func newMaterialHandlerFixture() (*MaterialHandler, *materialStoreMock) {
	store := &materialStoreMock{materials: map[string]*models.Material{
		"mat-1": {
			ID:              "mat-1",
			Name:            "Timberline HDZ Shingle",
			Location:        "DFW",
			Manufacturer:    "GAF",
			ProductCategory: "Shingle",
			Distributor:     "ABCSupply",
			TickerSymbol:    "ABC",
			CurrentPrice:    100,
		},
	}}
	svc := service.NewMaterialService(store, historyListerMock{}, nil, nil, nil, nil)
	return NewMaterialHandler(svc), store
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Name: "Ada Admin"}
}

func TestMaterialHandlerUpdatePriceWritesHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newMaterialHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{"current_price": 125.50})
	req, _ := http.NewRequest(http.MethodPatch, "/materials/mat-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.history, 1)
	require.Equal(t, 125.50, store.materials["mat-1"].CurrentPrice)

	var envelope struct {
		Data models.Material `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 125.50, envelope.Data.CurrentPrice)
	require.NotNil(t, envelope.Data.PreviousPrice)
	require.Equal(t, 100.0, *envelope.Data.PreviousPrice)
}

func TestMaterialHandlerUpdateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newMaterialHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{"current_price": 125.50})
	req, _ := http.NewRequest(http.MethodPatch, "/materials/mat-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}

	handler.Update(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMaterialHandlerUpdateUnknownMaterial(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newMaterialHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{"current_price": 10.0})
	req, _ := http.NewRequest(http.MethodPatch, "/materials/ghost", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Update(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMaterialHandlerHistoryRejectsBadDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newMaterialHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/materials/mat-1/history?days=soon", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaterialHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newMaterialHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{
		"name":             "Ridge Vent",
		"location":         "HOU",
		"manufacturer":     "GAF",
		"product_category": "Ventilation",
		"distributor":      "Beacon",
		"current_price":    42.50,
	})
	req, _ := http.NewRequest(http.MethodPost, "/materials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "QXO", store.materials["mat-created"].TickerSymbol)
}
