package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/cache"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/seasonality"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/warehouse"
	"github.com/rs/zerolog/log"
)

// SalesService answers sales history reports straight from the warehouse.
type SalesService struct {
	source     warehouse.SalesSource
	query      warehouse.Query
	calculator *seasonality.Calculator
	cache      cache.SalesCache
	cfg        config.SalesConfig
	now        func() time.Time
}

// SeasonalitySettings maps application config onto calculator settings.
func SeasonalitySettings(s config.SalesConfig) seasonality.Settings {
	settings := seasonality.DefaultSettings()
	if s.MaxProducts > 0 {
		settings.MaxProducts = s.MaxProducts
	}
	return settings
}

func NewSalesService(
	source warehouse.SalesSource,
	query warehouse.Query,
	calculator *seasonality.Calculator,
	cacheImpl cache.SalesCache,
	cfg config.SalesConfig,
) *SalesService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSalesCache()
	}
	return &SalesService{
		source:     source,
		query:      query,
		calculator: calculator,
		cache:      cacheImpl,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *SalesService) normalize(f domain.SalesFilter) domain.SalesFilter {
	f.Category = strings.TrimSpace(f.Category)
	f.Brand = strings.TrimSpace(f.Brand)
	f.Symbol = strings.TrimSpace(f.Symbol)
	if len(f.WarehouseIDs) == 0 {
		f.WarehouseIDs = s.cfg.WarehouseIDs
	}
	ids := append([]int(nil), f.WarehouseIDs...)
	sort.Ints(ids)
	f.WarehouseIDs = ids
	return f
}

// Seasonality returns the weekly seasonality index of every product sold in
// the trailing 52 weeks. The history window is fixed by the index, so any
// requested day count is ignored.
func (s *SalesService) Seasonality(ctx context.Context, f domain.SalesFilter) (*domain.SeasonalityReport, error) {
	now := s.now()
	f = s.normalize(f)
	f.Days = s.calculator.LookbackDays(now)

	if cached, ok, err := s.cache.GetSeasonality(ctx, f); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("sales: seasonality cache get failed")
	}

	sales, err := s.source.FetchDailySales(ctx, s.query, f)
	if err != nil {
		return nil, err
	}

	report := s.calculator.Compute(sales, now)
	report.Filter = f

	if err := s.cache.SetSeasonality(ctx, f, &report); err != nil {
		log.Warn().Err(err).Msg("sales: seasonality cache set failed")
	}
	log.Info().Int("products", report.TotalProducts).Int("rows", len(sales)).Msg("sales: seasonality computed")
	return &report, nil
}

// Summary totals sales per day, week, month and year over the requested days.
func (s *SalesService) Summary(ctx context.Context, f domain.SalesFilter) (*domain.SalesSummary, error) {
	f = s.normalize(f)
	if f.Days == 0 {
		f.Days = s.cfg.SummaryDays
	}
	if f.Days < 1 || (s.cfg.MaxDays > 0 && f.Days > s.cfg.MaxDays) {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, s.cfg.MaxDays)
	}

	if cached, ok, err := s.cache.GetSummary(ctx, f); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("sales: summary cache get failed")
	}

	sales, err := s.source.FetchDailySales(ctx, s.query, f)
	if err != nil {
		return nil, err
	}

	summary := seasonality.Summarize(sales)
	summary.Filter = f

	if err := s.cache.SetSummary(ctx, f, &summary); err != nil {
		log.Warn().Err(err).Msg("sales: summary cache set failed")
	}
	return &summary, nil
}
