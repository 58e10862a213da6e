package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/pricing"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
)

// Accepted change-date layouts for historical imports.
var historyDateLayouts = []string{"2006-01-02", "1/2/2006"}

// distributorSynonyms maps lowercased, space-stripped variants to canonical
// distributor names. Ticker symbols are accepted as aliases.
var distributorSynonyms = map[string]string{
	"abcsupply":              "ABCSupply",
	"abc":                    "ABCSupply",
	"beacon":                 "Beacon",
	"qxo":                    "Beacon",
	"srsproducts":            "SRSProducts",
	"srs":                    "SRSProducts",
	"commercialdistributors": "CommercialDistributors",
	"cdh":                    "CommercialDistributors",
	"other":                  "Other",
	"oth":                    "Other",
}

type importMaterialStore interface {
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	FindByNameDistributorLocation(ctx context.Context, name, distributor, location string) (*models.Material, error)
}

type importHistoryStore interface {
	Create(ctx context.Context, entry *models.PriceHistoryEntry) error
}

// ImportService handles row-at-a-time CSV ingestion for materials and
// historical price changes.
type ImportService struct {
	materials importMaterialStore
	history   importHistoryStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(materials importMaterialStore, history importHistoryStore, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{materials: materials, history: history, metrics: metrics, logger: logger}
}

// ImportMaterials ingests a materials CSV. Rows are processed strictly in
// order; a failed row is recorded with its header-offset row number and never
// undoes earlier successes.
func (s *ImportService) ImportMaterials(ctx context.Context, r io.Reader, importedBy string) (*dto.ImportResult, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid CSV format")
	}

	result := &dto.ImportResult{Total: len(rows), Errors: []dto.RowError{}}
	for i, row := range rows {
		rowNumber := i + 2 // header occupies row 1
		if err := s.importMaterialRow(ctx, header, row, importedBy); err != nil {
			result.Errors = append(result.Errors, dto.RowError{Row: rowNumber, Error: err.Error()})
			if s.metrics != nil {
				s.metrics.RecordImportRow("materials", false)
			}
			continue
		}
		result.Success++
		if s.metrics != nil {
			s.metrics.RecordImportRow("materials", true)
		}
	}

	s.logger.Info("materials import finished",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *ImportService) importMaterialRow(ctx context.Context, header map[string]int, row []string, importedBy string) error {
	name := strings.TrimSpace(field(header, row, "name"))
	if name == "" {
		return fmt.Errorf("name: required")
	}

	location := NormalizeEnum(field(header, row, "location"), models.Locations, models.DefaultLocation)
	manufacturer := NormalizeEnum(field(header, row, "manufacturer"), models.Manufacturers, "Other")
	category := NormalizeEnum(field(header, row, "productCategory"), models.ProductCategories, "Other")

	distributor, ok := NormalizeDistributor(field(header, row, "distributor"))
	if !ok {
		return fmt.Errorf("distributor: unknown value %q", strings.TrimSpace(field(header, row, "distributor")))
	}

	priceText := strings.TrimSpace(field(header, row, "currentPrice"))
	price, err := parsePrice(priceText)
	if err != nil {
		return fmt.Errorf("currentPrice: %v", err)
	}

	ticker := strings.TrimSpace(field(header, row, "tickerSymbol"))
	if ticker == "" {
		ticker = models.TickerForDistributor(distributor)
	}

	material := &models.Material{
		Name:            name,
		Location:        location,
		Manufacturer:    manufacturer,
		ProductCategory: category,
		Distributor:     distributor,
		TickerSymbol:    ticker,
		CurrentPrice:    pricing.Round2(price),
		UpdatedBy:       &importedBy,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		return fmt.Errorf("failed to save material")
	}
	return nil
}

// ImportPriceHistory ingests historical price-change rows. The supplied
// change date becomes the entry's submission time so backfilled history keeps
// true chronology, and a change newer than the material's last update also
// advances the material's stored price.
func (s *ImportService) ImportPriceHistory(ctx context.Context, r io.Reader, importedBy string) (*dto.ImportResult, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid CSV format")
	}

	result := &dto.ImportResult{Total: len(rows), Errors: []dto.RowError{}}
	for i, row := range rows {
		rowNumber := i + 2
		if err := s.importHistoryRow(ctx, header, row, importedBy); err != nil {
			result.Errors = append(result.Errors, dto.RowError{Row: rowNumber, Error: err.Error()})
			if s.metrics != nil {
				s.metrics.RecordImportRow("price_history", false)
			}
			continue
		}
		result.Success++
		if s.metrics != nil {
			s.metrics.RecordImportRow("price_history", true)
		}
	}

	s.logger.Info("price history import finished",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *ImportService) importHistoryRow(ctx context.Context, header map[string]int, row []string, importedBy string) error {
	name := strings.TrimSpace(field(header, row, "materialName"))
	if name == "" {
		return fmt.Errorf("materialName: required")
	}
	distributor, ok := NormalizeDistributor(field(header, row, "distributor"))
	if !ok {
		return fmt.Errorf("distributor: unknown value %q", strings.TrimSpace(field(header, row, "distributor")))
	}
	location := NormalizeEnum(field(header, row, "location"), models.Locations, models.DefaultLocation)

	material, err := s.materials.FindByNameDistributorLocation(ctx, name, distributor, location)
	if err != nil {
		return fmt.Errorf("no material matches %s / %s / %s", name, distributor, location)
	}

	newPrice, err := parsePrice(strings.TrimSpace(field(header, row, "newPrice")))
	if err != nil {
		return fmt.Errorf("newPrice: %v", err)
	}

	var oldPrice *float64
	if text := strings.TrimSpace(field(header, row, "oldPrice")); text != "" {
		parsed, err := parsePrice(text)
		if err != nil {
			return fmt.Errorf("oldPrice: %v", err)
		}
		oldPrice = &parsed
	}

	changeDate, err := parseChangeDate(strings.TrimSpace(field(header, row, "changeDate")))
	if err != nil {
		return fmt.Errorf("changeDate: %v", err)
	}

	var notes *string
	if reason := strings.TrimSpace(field(header, row, "changeReason")); reason != "" {
		notes = &reason
	}

	change := pricing.Compute(oldPrice, newPrice)
	now := time.Now().UTC()
	entry := &models.PriceHistoryEntry{
		MaterialID:    material.ID,
		OldPrice:      oldPrice,
		NewPrice:      pricing.Round2(newPrice),
		ChangePercent: pricing.Round2(change.Percent),
		SubmittedBy:   importedBy,
		SubmittedAt:   changeDate,
		ApprovedBy:    &importedBy,
		ApprovedAt:    &now,
		Status:        models.PriceChangeStatusApproved,
		Notes:         notes,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save history entry")
	}

	// Only the newest backfilled change moves the live price; rows older
	// than the material's last update add chronology and nothing else.
	if changeDate.After(material.LastUpdated) {
		snapshot := material.CurrentPrice
		material.PreviousPrice = oldPrice
		if oldPrice == nil && snapshot > 0 {
			material.PreviousPrice = &snapshot
		}
		material.CurrentPrice = entry.NewPrice
		material.LastUpdated = changeDate
		material.UpdatedBy = &importedBy
		if err := s.materials.Update(ctx, material); err != nil {
			return fmt.Errorf("failed to update material price")
		}
	}
	return nil
}

// NormalizeEnum matches a free-text value against the valid set
// case-insensitively, falling back to the default when empty or unmatched.
func NormalizeEnum(value string, valid []string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	for _, candidate := range valid {
		if strings.EqualFold(candidate, trimmed) {
			return candidate
		}
	}
	return fallback
}

// NormalizeDistributor resolves free-text distributor variants to a canonical
// name. Unlike the other enums there is no silent fallback: an unmatched
// distributor is a row error because it would corrupt ticker derivation.
func NormalizeDistributor(value string) (string, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	if key == "" {
		return "", false
	}
	canonical, ok := distributorSynonyms[key]
	return canonical, ok
}

func readCSV(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}

	var rows [][]string
	for _, record := range records[1:] {
		empty := true
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			rows = append(rows, record)
		}
	}
	return header, rows, nil
}

func field(header map[string]int, row []string, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parsePrice(text string) (float64, error) {
	cleaned := strings.TrimPrefix(text, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a decimal number")
	}
	if price <= 0 {
		return 0, fmt.Errorf("must be greater than zero")
	}
	return price, nil
}

func parseChangeDate(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	for _, layout := range historyDateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("must be YYYY-MM-DD or M/D/YYYY")
}
