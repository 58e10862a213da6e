package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/models"
)

type stubDashboardStore struct {
	avgCutoff         time.Time
	locationCutoff    time.Time
	distributorCutoff time.Time
}

func (s *stubDashboardStore) AvgChangePercent(ctx context.Context, cutoff time.Time) (float64, error) {
	s.avgCutoff = cutoff
	return 4.257, nil
}

func (s *stubDashboardStore) LocationPerformance(ctx context.Context, cutoff time.Time) ([]models.LocationPerformance, error) {
	s.locationCutoff = cutoff
	return []models.LocationPerformance{{Location: "DFW", ChangePercent: 2.349, MaterialCount: 8}}, nil
}

func (s *stubDashboardStore) DistributorPerformance(ctx context.Context, cutoff time.Time) ([]models.DistributorPerformance, error) {
	s.distributorCutoff = cutoff
	return nil, nil
}

func (s *stubDashboardStore) TrendingMaterials(ctx context.Context, limit int) ([]models.Material, error) {
	return nil, nil
}

type stubDashboardMaterialStore struct{}

func (stubDashboardMaterialStore) CountAll(ctx context.Context) (int, error) {
	return 12, nil
}

type stubDashboardHistoryStore struct {
	sinceCutoff time.Time
}

func (s *stubDashboardHistoryStore) RecentApproved(ctx context.Context, limit int) ([]models.PriceHistoryWithMaterial, error) {
	return nil, nil
}

func (s *stubDashboardHistoryStore) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	s.sinceCutoff = cutoff
	return 3, nil
}

type stubDashboardRequestStore struct{}

func (stubDashboardRequestStore) CountByStatus(ctx context.Context, status models.PriceChangeStatus) (int, error) {
	return 2, nil
}

func TestDashboardStatsCountsLastDayOnly(t *testing.T) {
	dashboards := &stubDashboardStore{}
	history := &stubDashboardHistoryStore{}
	svc := NewDashboardService(dashboards, stubDashboardMaterialStore{}, history, stubDashboardRequestStore{}, nil, nil, time.Minute, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, stats.TotalMaterials)
	require.Equal(t, 4.26, stats.AvgPriceChange)
	require.Equal(t, 3, stats.RecentUpdates)
	require.Equal(t, 2, stats.PendingRequests)

	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	require.WithinDuration(t, dayAgo, dashboards.avgCutoff, time.Minute)
	require.WithinDuration(t, dayAgo, history.sinceCutoff, time.Minute)
}

func TestDashboardLocationPerformanceUsesMonthWindow(t *testing.T) {
	dashboards := &stubDashboardStore{}
	svc := NewDashboardService(dashboards, stubDashboardMaterialStore{}, &stubDashboardHistoryStore{}, stubDashboardRequestStore{}, nil, nil, time.Minute, nil)

	rows, err := svc.LocationPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2.35, rows[0].ChangePercent)

	monthAgo := time.Now().UTC().AddDate(0, 0, -30)
	require.WithinDuration(t, monthAgo, dashboards.locationCutoff, time.Minute)
}
