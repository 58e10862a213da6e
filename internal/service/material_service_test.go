package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/models"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
)

type stubMaterialStore struct {
	materials map[string]*models.Material

	updatedPlain   *models.Material
	updatedWithTx  *models.Material
	historyEntries []*models.PriceHistoryEntry
	created        []*models.Material
}

func newStubMaterialStore(materials ...*models.Material) *stubMaterialStore {
	s := &stubMaterialStore{materials: map[string]*models.Material{}}
	for _, m := range materials {
		s.materials[m.ID] = m
	}
	return s
}

func (s *stubMaterialStore) List(ctx context.Context) ([]models.Material, error) {
	out := make([]models.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, *m)
	}
	return out, nil
}

func (s *stubMaterialStore) FindByID(ctx context.Context, id string) (*models.Material, error) {
	m, ok := s.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *m
	return &clone, nil
}

func (s *stubMaterialStore) Search(ctx context.Context, term string, limit int) ([]models.Material, error) {
	return nil, nil
}

func (s *stubMaterialStore) Create(ctx context.Context, material *models.Material) error {
	material.ID = "created-1"
	s.created = append(s.created, material)
	return nil
}

func (s *stubMaterialStore) Update(ctx context.Context, material *models.Material) error {
	s.updatedPlain = material
	return nil
}

func (s *stubMaterialStore) UpdateWithHistory(ctx context.Context, material *models.Material, entry *models.PriceHistoryEntry) error {
	s.updatedWithTx = material
	s.historyEntries = append(s.historyEntries, entry)
	return nil
}

func (s *stubMaterialStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.materials[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.materials, id)
	return nil
}

type stubHistoryLister struct {
	entries []models.PriceHistoryEntry
}

func (s *stubHistoryLister) ListByMaterial(ctx context.Context, materialID string, days int) ([]models.PriceHistoryEntry, error) {
	return s.entries, nil
}

type recordingNotifier struct {
	updated  int
	fail     bool
	reviews  int
	requests int
}

func (n *recordingNotifier) PriceChangeRequested(ctx context.Context, request *models.PriceChangeRequest) (string, error) {
	n.requests++
	if n.fail {
		return "", errors.New("slack unavailable")
	}
	return "1724871000.000100", nil
}

func (n *recordingNotifier) RequestReviewed(ctx context.Context, request *models.PriceChangeRequest, reviewerName string) error {
	n.reviews++
	if n.fail {
		return errors.New("slack unavailable")
	}
	return nil
}

func (n *recordingNotifier) PriceUpdated(ctx context.Context, material *models.Material, oldPrice *float64, updatedBy string) error {
	n.updated++
	if n.fail {
		return errors.New("slack unavailable")
	}
	return nil
}

func seedMaterial() *models.Material {
	return &models.Material{
		ID:              "mat-1",
		Name:            "Timberline HDZ Shingle",
		Location:        "DFW",
		Manufacturer:    "GAF",
		ProductCategory: "Shingle",
		Distributor:     "ABCSupply",
		TickerSymbol:    "ABC",
		CurrentPrice:    100.0,
	}
}

func TestMaterialServiceUpdatePriceWritesHistoryAtomically(t *testing.T) {
	store := newStubMaterialStore(seedMaterial())
	notifier := &recordingNotifier{}
	svc := NewMaterialService(store, &stubHistoryLister{}, notifier, nil, nil, nil)

	newPrice := 125.50
	updated, err := svc.Update(context.Background(), "mat-1", dto.UpdateMaterialRequest{CurrentPrice: &newPrice}, "admin-1")
	require.NoError(t, err)

	require.Equal(t, 125.50, updated.CurrentPrice)
	require.NotNil(t, updated.PreviousPrice)
	require.Equal(t, 100.0, *updated.PreviousPrice)
	require.Equal(t, "admin-1", *updated.UpdatedBy)

	require.Len(t, store.historyEntries, 1)
	entry := store.historyEntries[0]
	require.Equal(t, 100.0, *entry.OldPrice)
	require.Equal(t, 125.50, entry.NewPrice)
	require.Equal(t, 25.5, entry.ChangePercent)
	require.Equal(t, models.PriceChangeStatusApproved, entry.Status)
	require.Equal(t, "admin-1", entry.SubmittedBy)
	require.Equal(t, "admin-1", *entry.ApprovedBy)
	require.Equal(t, 1, notifier.updated)
}

func TestMaterialServiceUpdateNonPriceFieldsSkipsHistory(t *testing.T) {
	store := newStubMaterialStore(seedMaterial())
	svc := NewMaterialService(store, &stubHistoryLister{}, &recordingNotifier{}, nil, nil, nil)

	name := "Timberline HDZ Shingle (Charcoal)"
	updated, err := svc.Update(context.Background(), "mat-1", dto.UpdateMaterialRequest{Name: &name}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Empty(t, store.historyEntries)
	require.NotNil(t, store.updatedPlain)
	require.Nil(t, store.updatedWithTx)
}

func TestMaterialServiceUpdateDistributorRecomputesTicker(t *testing.T) {
	store := newStubMaterialStore(seedMaterial())
	svc := NewMaterialService(store, &stubHistoryLister{}, &recordingNotifier{}, nil, nil, nil)

	distributor := "Beacon"
	updated, err := svc.Update(context.Background(), "mat-1", dto.UpdateMaterialRequest{Distributor: &distributor}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "QXO", updated.TickerSymbol)
}

func TestMaterialServiceUpdateSwallowsNotificationFailure(t *testing.T) {
	store := newStubMaterialStore(seedMaterial())
	notifier := &recordingNotifier{fail: true}
	svc := NewMaterialService(store, &stubHistoryLister{}, notifier, nil, nil, nil)

	newPrice := 90.0
	updated, err := svc.Update(context.Background(), "mat-1", dto.UpdateMaterialRequest{CurrentPrice: &newPrice}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 90.0, updated.CurrentPrice)
	require.Len(t, store.historyEntries, 1)
}

func TestMaterialServiceUpdateUnknownMaterial(t *testing.T) {
	svc := NewMaterialService(newStubMaterialStore(), &stubHistoryLister{}, &recordingNotifier{}, nil, nil, nil)

	price := 10.0
	_, err := svc.Update(context.Background(), "ghost", dto.UpdateMaterialRequest{CurrentPrice: &price}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestMaterialServiceCreateDerivesTicker(t *testing.T) {
	store := newStubMaterialStore()
	svc := NewMaterialService(store, &stubHistoryLister{}, &recordingNotifier{}, nil, nil, nil)

	material, err := svc.Create(context.Background(), dto.CreateMaterialRequest{
		Name:            "Ridge Vent",
		Location:        "HOU",
		Manufacturer:    "GAF",
		ProductCategory: "Ventilation",
		Distributor:     "SRSProducts",
		CurrentPrice:    42.125,
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "SRS", material.TickerSymbol)
	require.Equal(t, 42.13, material.CurrentPrice)
}

func TestMaterialServiceCreateRejectsUnknownDistributor(t *testing.T) {
	svc := NewMaterialService(newStubMaterialStore(), &stubHistoryLister{}, &recordingNotifier{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateMaterialRequest{
		Name:            "Ridge Vent",
		Location:        "HOU",
		Manufacturer:    "GAF",
		ProductCategory: "Ventilation",
		Distributor:     "Bob's Roofing Supply",
		CurrentPrice:    42.0,
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
