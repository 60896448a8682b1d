package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/cache"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/drive"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/export"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/proposal"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	minPeriodDays = 1
	maxPeriodDays = 365
)

// ProposalProducts lists mirrored products carrying a purpose tag.
type ProposalProducts interface {
	ListByPurpose(ctx context.Context, purpose string) ([]domain.Product, error)
}

// PeriodImportResult reports the outcome of a bulk period import.
type PeriodImportResult struct {
	Imported int              `json:"imported"`
	Rejected []drive.RowError `json:"rejected"`
}

type ProposalService struct {
	products   ProposalProducts
	periods    repository.StockPeriodRepository
	calculator *proposal.Calculator
	cache      cache.ProposalCache
	defaultTag string
	now        func() time.Time
}

// ProposalSettings maps application config onto calculator settings.
func ProposalSettings(a config.AnalysisConfig, p config.ProposalConfig) proposal.Settings {
	return proposal.Settings{
		RecentWindowDays:    a.RecentWindowDays,
		DefaultLeadTimeDays: p.DefaultLeadTimeDays,
		MinStockDays:        p.MinStockDays,
		OKMarginRatio:       p.OKMarginRatio,
		EstimatedCostRatio:  p.EstimatedCostRatio,
		DefaultVATRate:      p.DefaultVATRate,
	}
}

func NewProposalService(
	products ProposalProducts,
	periods repository.StockPeriodRepository,
	calculator *proposal.Calculator,
	cacheImpl cache.ProposalCache,
	defaultTag string,
) *ProposalService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopProposalCache()
	}
	return &ProposalService{
		products:   products,
		periods:    periods,
		calculator: calculator,
		cache:      cacheImpl,
		defaultTag: defaultTag,
		now:        time.Now,
	}
}

func (s *ProposalService) normalize(params domain.ProposalParams) (domain.ProposalParams, error) {
	params.CategoryTag = strings.ToUpper(strings.TrimSpace(params.CategoryTag))
	if params.CategoryTag == "" {
		params.CategoryTag = strings.ToUpper(strings.TrimSpace(s.defaultTag))
	}
	if params.MinStockDays == 0 {
		params.MinStockDays = s.calculator.Settings().MinStockDays
	}
	if params.MinStockDays < minPeriodDays || params.MinStockDays > maxPeriodDays {
		return params, fmt.Errorf("%w: min_stock_days must be between %d and %d", domain.ErrInvalidInput, minPeriodDays, maxPeriodDays)
	}
	return params, nil
}

// Compute returns proposals for params, served from cache when fresh.
func (s *ProposalService) Compute(ctx context.Context, params domain.ProposalParams) (*domain.ProposalResult, error) {
	params, err := s.normalize(params)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, params); err == nil && ok {
		cached.Cached = true
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("proposals: cache get failed")
	}

	products, err := s.products.ListByPurpose(ctx, params.CategoryTag)
	if err != nil {
		return nil, err
	}

	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]domain.StockPeriodOverride, len(periods))
	for _, p := range periods {
		overrides[p.Symbol] = p
	}

	result := s.calculator.Compute(products, overrides, params)
	result.ComputedAt = s.now()

	if err := s.cache.Set(ctx, params, &result); err != nil {
		log.Warn().Err(err).Msg("proposals: cache set failed")
	}

	return &result, nil
}

// ExportXLSX writes the proposal list for params to w.
func (s *ProposalService) ExportXLSX(ctx context.Context, params domain.ProposalParams, w io.Writer) error {
	result, err := s.Compute(ctx, params)
	if err != nil {
		return err
	}
	return export.WriteProposals(w, result.Items)
}

func (s *ProposalService) ListPeriods(ctx context.Context) ([]domain.StockPeriodOverride, error) {
	return s.periods.List(ctx)
}

// SavePeriod validates and stores one override, then drops cached proposals.
func (s *ProposalService) SavePeriod(ctx context.Context, period domain.StockPeriodOverride) (*domain.StockPeriodOverride, error) {
	period.Symbol = strings.TrimSpace(period.Symbol)
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	period.UpdatedAt = s.now()

	if err := s.periods.Upsert(ctx, period); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &period, nil
}

func (s *ProposalService) DeletePeriod(ctx context.Context, symbol string) error {
	if err := s.periods.Delete(ctx, strings.TrimSpace(symbol)); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ImportPeriods stores every valid row of an XLSX period sheet.
func (s *ProposalService) ImportPeriods(ctx context.Context, r io.Reader) (*PeriodImportResult, error) {
	parsed, rowErrors, err := drive.ParsePeriodSheet(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	result := &PeriodImportResult{Rejected: rowErrors}
	if result.Rejected == nil {
		result.Rejected = make([]drive.RowError, 0)
	}

	valid := make([]domain.StockPeriodOverride, 0, len(parsed))
	now := s.now()
	for _, p := range parsed {
		if err := validatePeriod(p); err != nil {
			result.Rejected = append(result.Rejected, drive.RowError{Symbol: p.Symbol, Reason: err.Error()})
			continue
		}
		p.UpdatedAt = now
		valid = append(valid, p)
	}

	if len(valid) > 0 {
		if err := s.periods.UpsertMany(ctx, valid); err != nil {
			return nil, err
		}
		s.invalidate(ctx)
	}
	result.Imported = len(valid)

	log.Info().Int("imported", result.Imported).Int("rejected", len(result.Rejected)).Msg("Stock periods imported")
	return result, nil
}

func (s *ProposalService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("proposals: cache invalidation failed")
	}
}

func validatePeriod(p domain.StockPeriodOverride) error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidPeriod)
	}
	if p.DeliveryTimeDays < minPeriodDays || p.DeliveryTimeDays > maxPeriodDays {
		return fmt.Errorf("%w: delivery time must be between %d and %d days, got %d",
			domain.ErrInvalidPeriod, minPeriodDays, maxPeriodDays, p.DeliveryTimeDays)
	}
	if p.OrderFrequencyDays < minPeriodDays || p.OrderFrequencyDays > maxPeriodDays {
		return fmt.Errorf("%w: order frequency must be between %d and %d days, got %d",
			domain.ErrInvalidPeriod, minPeriodDays, maxPeriodDays, p.OrderFrequencyDays)
	}
	if p.OptimalOrderQuantity != nil && *p.OptimalOrderQuantity < 0 {
		return fmt.Errorf("%w: optimal order quantity must not be negative", domain.ErrInvalidPeriod)
	}
	return nil
}
