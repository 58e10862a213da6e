package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/models"
)

type stubImportMaterialStore struct {
	created  []*models.Material
	updated  []*models.Material
	existing map[string]*models.Material // keyed name|distributor|location
}

func (s *stubImportMaterialStore) Create(ctx context.Context, material *models.Material) error {
	s.created = append(s.created, material)
	return nil
}

func (s *stubImportMaterialStore) Update(ctx context.Context, material *models.Material) error {
	s.updated = append(s.updated, material)
	return nil
}

func (s *stubImportMaterialStore) FindByNameDistributorLocation(ctx context.Context, name, distributor, location string) (*models.Material, error) {
	key := strings.ToLower(name) + "|" + distributor + "|" + location
	if m, ok := s.existing[key]; ok {
		return m, nil
	}
	return nil, sql.ErrNoRows
}

type stubImportHistoryStore struct {
	created []*models.PriceHistoryEntry
}

func (s *stubImportHistoryStore) Create(ctx context.Context, entry *models.PriceHistoryEntry) error {
	s.created = append(s.created, entry)
	return nil
}

func TestImportMaterialsRowErrorsDoNotAbortBatch(t *testing.T) {
	csv := strings.Join([]string{
		"name,location,manufacturer,productCategory,distributor,currentPrice",
		"Starter Strip,DFW,Atlas,Flashing,ABC Supply,345.00",
		"Ridge Cap,HOU,GAF,Shingle,Bogus Distributor,12.00",
		"Drip Edge,ATX,Tamko,Flashing,Beacon,8.75",
	}, "\n")

	materials := &stubImportMaterialStore{}
	svc := NewImportService(materials, &stubImportHistoryStore{}, nil, nil)

	result, err := svc.ImportMaterials(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 2, result.Success)
	require.Len(t, result.Errors, 1)
	// row numbering counts the header as row 1
	require.Equal(t, 3, result.Errors[0].Row)
	require.Contains(t, result.Errors[0].Error, "distributor")

	require.Len(t, materials.created, 2)
	require.Equal(t, "ABCSupply", materials.created[0].Distributor)
	require.Equal(t, "ABC", materials.created[0].TickerSymbol)
	require.Equal(t, "Beacon", materials.created[1].Distributor)
	require.Equal(t, "QXO", materials.created[1].TickerSymbol)
}

func TestImportMaterialsNormalizationDefaults(t *testing.T) {
	csv := strings.Join([]string{
		"name,location,manufacturer,productCategory,distributor,currentPrice",
		"Mystery Item,Nowhere,Acme Corp,Widget,srs,19.99",
	}, "\n")

	materials := &stubImportMaterialStore{}
	svc := NewImportService(materials, &stubImportHistoryStore{}, nil, nil)

	result, err := svc.ImportMaterials(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Success)

	created := materials.created[0]
	require.Equal(t, models.DefaultLocation, created.Location)
	require.Equal(t, "Other", created.Manufacturer)
	require.Equal(t, "Other", created.ProductCategory)
	require.Equal(t, "SRSProducts", created.Distributor)
	require.Equal(t, "SRS", created.TickerSymbol)
}

func TestImportMaterialsRejectsBadPrice(t *testing.T) {
	csv := strings.Join([]string{
		"name,location,manufacturer,productCategory,distributor,currentPrice",
		"Free Sample,DFW,GAF,Shingle,Beacon,0",
		"Negative,DFW,GAF,Shingle,Beacon,-4.50",
		"Words,DFW,GAF,Shingle,Beacon,cheap",
	}, "\n")

	svc := NewImportService(&stubImportMaterialStore{}, &stubImportHistoryStore{}, nil, nil)
	result, err := svc.ImportMaterials(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 0, result.Success)
	require.Len(t, result.Errors, 3)
	require.Equal(t, []int{2, 3, 4}, []int{result.Errors[0].Row, result.Errors[1].Row, result.Errors[2].Row})
}

func TestImportPriceHistoryUsesSuppliedDate(t *testing.T) {
	material := &models.Material{ID: "mat-1", Name: "Starter Strip", Distributor: "ABCSupply", Location: "DFW"}
	materials := &stubImportMaterialStore{existing: map[string]*models.Material{
		"starter strip|ABCSupply|DFW": material,
	}}
	history := &stubImportHistoryStore{}
	svc := NewImportService(materials, history, nil, nil)

	csv := strings.Join([]string{
		"materialName,distributor,location,oldPrice,newPrice,changeDate,changeReason",
		"Starter Strip,ABC Supply,DFW,300.00,345.00,2025-01-05,vendor increase",
		"Starter Strip,ABC Supply,DFW,345.00,360.00,2/14/2025,freight surcharge",
	}, "\n")

	result, err := svc.ImportPriceHistory(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Success)
	require.Empty(t, result.Errors)

	require.Len(t, history.created, 2)
	first := history.created[0]
	require.Equal(t, "mat-1", first.MaterialID)
	require.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), first.SubmittedAt)
	require.Equal(t, models.PriceChangeStatusApproved, first.Status)
	require.Equal(t, 15.0, first.ChangePercent)
	require.Equal(t, "vendor increase", *first.Notes)

	second := history.created[1]
	require.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), second.SubmittedAt)
}

func TestImportPriceHistorySyncsOnlyNewestChange(t *testing.T) {
	lastUpdated := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	material := &models.Material{
		ID:           "mat-1",
		Name:         "Starter Strip",
		Distributor:  "ABCSupply",
		Location:     "DFW",
		CurrentPrice: 350,
		LastUpdated:  lastUpdated,
	}
	materials := &stubImportMaterialStore{existing: map[string]*models.Material{
		"starter strip|ABCSupply|DFW": material,
	}}
	history := &stubImportHistoryStore{}
	svc := NewImportService(materials, history, nil, nil)

	csv := strings.Join([]string{
		"materialName,distributor,location,oldPrice,newPrice,changeDate,changeReason",
		"Starter Strip,ABC Supply,DFW,300.00,345.00,2025-01-05,vendor increase",
		"Starter Strip,ABC Supply,DFW,345.00,360.00,2/14/2025,freight surcharge",
	}, "\n")

	result, err := svc.ImportPriceHistory(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Success)
	require.Len(t, history.created, 2)

	// the January row predates the material's last update and must not move it
	require.Len(t, materials.updated, 1)
	require.Equal(t, 360.0, material.CurrentPrice)
	require.NotNil(t, material.PreviousPrice)
	require.Equal(t, 345.0, *material.PreviousPrice)
	require.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), material.LastUpdated)
	require.Equal(t, "admin-1", *material.UpdatedBy)
}

func TestImportPriceHistoryUnmatchedMaterialIsRowError(t *testing.T) {
	svc := NewImportService(&stubImportMaterialStore{}, &stubImportHistoryStore{}, nil, nil)

	csv := strings.Join([]string{
		"materialName,distributor,location,oldPrice,newPrice,changeDate,changeReason",
		"Ghost Material,Beacon,DFW,10.00,12.00,2025-03-01,backfill",
	}, "\n")

	result, err := svc.ImportPriceHistory(context.Background(), strings.NewReader(csv), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 0, result.Success)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 2, result.Errors[0].Row)
	require.Contains(t, result.Errors[0].Error, "no material matches")
}

func TestNormalizeDistributorSynonyms(t *testing.T) {
	cases := map[string]string{
		"ABC Supply":              "ABCSupply",
		"abc":                     "ABCSupply",
		"QXO":                     "Beacon",
		"beacon":                  "Beacon",
		"SRS Products":            "SRSProducts",
		"commercial distributors": "CommercialDistributors",
		"Other":                   "Other",
	}
	for input, want := range cases {
		got, ok := NormalizeDistributor(input)
		require.True(t, ok, input)
		require.Equal(t, want, got)
	}

	_, ok := NormalizeDistributor("Bob's Supply Shack")
	require.False(t, ok)
	_, ok = NormalizeDistributor("")
	require.False(t, ok)
}
