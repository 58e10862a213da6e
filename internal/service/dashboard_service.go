package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/pricing"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
)

// Stats counts cover the last day; performance aggregates span a month.
const (
	dashboardStatsWindow = 24 * time.Hour
	dashboardWindowDays  = 30
)

type dashboardStore interface {
	AvgChangePercent(ctx context.Context, cutoff time.Time) (float64, error)
	LocationPerformance(ctx context.Context, cutoff time.Time) ([]models.LocationPerformance, error)
	DistributorPerformance(ctx context.Context, cutoff time.Time) ([]models.DistributorPerformance, error)
	TrendingMaterials(ctx context.Context, limit int) ([]models.Material, error)
}

type dashboardMaterialStore interface {
	CountAll(ctx context.Context) (int, error)
}

type dashboardHistoryStore interface {
	RecentApproved(ctx context.Context, limit int) ([]models.PriceHistoryWithMaterial, error)
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
}

type dashboardRequestStore interface {
	CountByStatus(ctx context.Context, status models.PriceChangeStatus) (int, error)
}

// DashboardService aggregates pricing analytics with a Redis cache in front.
// Cache failures degrade to direct database reads, never to request errors.
type DashboardService struct {
	dashboards dashboardStore
	materials  dashboardMaterialStore
	history    dashboardHistoryStore
	requests   dashboardRequestStore
	redis      *redis.Client
	metrics    *MetricsService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs a DashboardService. A nil redis client
// disables caching entirely.
func NewDashboardService(dashboards dashboardStore, materials dashboardMaterialStore, history dashboardHistoryStore, requests dashboardRequestStore, redisClient *redis.Client, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		dashboards: dashboards,
		materials:  materials,
		history:    history,
		requests:   requests,
		redis:      redisClient,
		metrics:    metrics,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Stats returns the landing-view summary numbers.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if s.readCache(ctx, "dashboard:stats", &stats) {
		return &stats, nil
	}

	cutoff := time.Now().UTC().Add(-dashboardStatsWindow)

	total, err := s.materials.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count materials")
	}
	avg, err := s.dashboards.AvgChangePercent(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average change")
	}
	recent, err := s.history.CountSince(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count recent updates")
	}
	pending, err := s.requests.CountByStatus(ctx, models.PriceChangeStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}

	stats = models.DashboardStats{
		TotalMaterials:  total,
		AvgPriceChange:  pricing.Round2(avg),
		RecentUpdates:   recent,
		PendingRequests: pending,
	}
	s.writeCache(ctx, "dashboard:stats", stats)
	return &stats, nil
}

// RecentChanges returns the latest approved price changes for the feed.
func (s *DashboardService) RecentChanges(ctx context.Context, limit int) ([]models.PriceHistoryWithMaterial, error) {
	entries, err := s.history.RecentApproved(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent changes")
	}
	return entries, nil
}

// LocationPerformance returns per-branch aggregates over the 30-day window.
func (s *DashboardService) LocationPerformance(ctx context.Context) ([]models.LocationPerformance, error) {
	var rows []models.LocationPerformance
	if s.readCache(ctx, "dashboard:locations", &rows) {
		return rows, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -dashboardWindowDays)
	rows, err := s.dashboards.LocationPerformance(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location performance")
	}
	for i := range rows {
		rows[i].ChangePercent = pricing.Round2(rows[i].ChangePercent)
	}
	s.writeCache(ctx, "dashboard:locations", rows)
	return rows, nil
}

// DistributorPerformance returns per-distributor aggregates over the window.
func (s *DashboardService) DistributorPerformance(ctx context.Context) ([]models.DistributorPerformance, error) {
	var rows []models.DistributorPerformance
	if s.readCache(ctx, "dashboard:distributors", &rows) {
		return rows, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -dashboardWindowDays)
	rows, err := s.dashboards.DistributorPerformance(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distributor performance")
	}
	for i := range rows {
		rows[i].ChangePercent = pricing.Round2(rows[i].ChangePercent)
	}
	s.writeCache(ctx, "dashboard:distributors", rows)
	return rows, nil
}

// Trending returns the materials with the largest recent movement.
func (s *DashboardService) Trending(ctx context.Context, limit int) ([]models.MaterialWithTrend, error) {
	materials, err := s.dashboards.TrendingMaterials(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trending materials")
	}
	out := make([]models.MaterialWithTrend, 0, len(materials))
	for _, m := range materials {
		out = append(out, withTrend(m))
	}
	return out, nil
}

// Invalidate drops cached dashboard aggregates after a mutation.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "dashboard:stats", "dashboard:locations", "dashboard:distributors").Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}
	payload, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("dashboard cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(true)
	}
	return true
}

func (s *DashboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
