package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/cache"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/export"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

const topProductsPerStatus = 10

// AnalysisRunner starts analysis runs and reports on them.
type AnalysisRunner interface {
	RunAnalysis(ctx context.Context) (domain.RunSummary, error)
	StartAnalysis(ctx context.Context) error
	Running() bool
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
}

// ObjectUploader stores export artifacts.
type ObjectUploader interface {
	UploadObject(ctx context.Context, key string, data []byte) error
}

// AnalysisStatus is the state reported by the status endpoint.
type AnalysisStatus struct {
	Running  bool                 `json:"running"`
	LastRun  *domain.RunSummary   `json:"last_run"`
	Snapshot *domain.SnapshotInfo `json:"snapshot"`
}

type RotationService struct {
	repo    repository.RotationRepository
	ignored repository.IgnoredProductRepository
	runner  AnalysisRunner
	cache   cache.DeadStockCache
	now     func() time.Time
}

func NewRotationService(
	repo repository.RotationRepository,
	ignored repository.IgnoredProductRepository,
	runner AnalysisRunner,
	cacheImpl cache.DeadStockCache,
) *RotationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDeadStockCache()
	}
	return &RotationService{repo: repo, ignored: ignored, runner: runner, cache: cacheImpl, now: time.Now}
}

// RunAnalysis runs an analysis synchronously.
func (s *RotationService) RunAnalysis(ctx context.Context) (domain.RunSummary, error) {
	return s.runner.RunAnalysis(ctx)
}

// TriggerAnalysis starts a background run detached from the caller's
// request lifetime.
func (s *RotationService) TriggerAnalysis() error {
	return s.runner.StartAnalysis(context.Background())
}

func (s *RotationService) Status(ctx context.Context) (*AnalysisStatus, error) {
	status := &AnalysisStatus{Running: s.runner.Running()}

	last, err := s.runner.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	status.LastRun = last

	info, err := s.repo.SnapshotInfo(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoSnapshot) {
		return nil, err
	}
	status.Snapshot = info

	return status, nil
}

// Query returns one page of the latest snapshot. It never recomputes.
func (s *RotationService) Query(ctx context.Context, filter domain.DeadStockFilter) (*domain.DeadStockPage, error) {
	info, err := s.repo.SnapshotInfo(ctx)
	if err != nil {
		return nil, err
	}

	if page, ok, err := s.cache.GetPage(ctx, info.RunID, filter); err == nil && ok {
		return page, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("rotation: cache get page failed")
	}

	page, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	page.TotalFrozenValue = roundTo(page.TotalFrozenValue, 2)
	page.AvgDaysNoMovement = roundTo(page.AvgDaysNoMovement, 1)

	// Keyed by the run the page was read from, which may already be newer than info.
	if err := s.cache.SetPage(ctx, page.SnapshotRunID, filter, page); err != nil {
		log.Warn().Err(err).Msg("rotation: cache set page failed")
	}

	return page, nil
}

// ValueReport breaks the frozen value of the snapshot down by status.
func (s *RotationService) ValueReport(ctx context.Context) (*domain.RotationValueReport, error) {
	info, err := s.repo.SnapshotInfo(ctx)
	if err != nil {
		return nil, err
	}

	if report, ok, err := s.cache.GetValueReport(ctx, info.RunID); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("rotation: cache get value report failed")
	}

	snap, err := s.repo.ValueSnapshot(ctx, topProductsPerStatus)
	if err != nil {
		return nil, err
	}
	report := buildValueReport(snap)

	if err := s.cache.SetValueReport(ctx, snap.Info.RunID, report); err != nil {
		log.Warn().Err(err).Msg("rotation: cache set value report failed")
	}

	return report, nil
}

func buildValueReport(snap *domain.ValueSnapshot) *domain.RotationValueReport {
	analyzedAt := snap.Info.AnalyzedAt
	report := &domain.RotationValueReport{
		Categories:      make([]domain.RotationValueCategory, 0, len(snap.Aggregates)),
		Recommendations: make([]domain.ValueRecommendation, 0),
		LastUpdate:      &analyzedAt,
		SnapshotRunID:   snap.Info.RunID,
	}

	var totalValue float64
	for _, a := range snap.Aggregates {
		totalValue += a.TotalValue
		report.TotalProducts += a.Count
		report.TotalQuantity += a.TotalQuantity
	}
	report.TotalValue = roundTo(totalValue, 2)
	report.TotalQuantity = roundTo(report.TotalQuantity, 2)

	for _, a := range snap.Aggregates {
		top := snap.TopProducts[a.Status]
		if top == nil {
			top = []domain.RotationRecord{}
		}

		category := domain.RotationValueCategory{
			RotationAggregate: a,
			Label:             a.Status.Label(),
			ValueShare:        sharePct(a.TotalValue, totalValue),
			ProductShare:      sharePct(float64(a.Count), float64(report.TotalProducts)),
			TopProducts:       top,
		}
		category.TotalValue = roundTo(a.TotalValue, 2)
		category.TotalQuantity = roundTo(a.TotalQuantity, 2)
		category.AvgDaysNoMovement = roundTo(a.AvgDaysNoMovement, 1)
		if a.AvgDaysOfStock != nil {
			v := roundTo(*a.AvgDaysOfStock, 1)
			category.AvgDaysOfStock = &v
		}

		report.Categories = append(report.Categories, category)
		if rec, ok := recommendationFor(category.RotationAggregate); ok {
			report.Recommendations = append(report.Recommendations, rec)
		}
	}

	return report
}

func recommendationFor(a domain.RotationAggregate) (domain.ValueRecommendation, bool) {
	rec := domain.ValueRecommendation{Status: a.Status}

	switch a.Status {
	case domain.StatusDead:
		rec.Priority = "critical"
		rec.Message = fmt.Sprintf("Clearance sale: %d products hold %.0f of frozen capital", a.Count, a.TotalValue)
		rec.ValueImpact = a.TotalValue
	case domain.StatusVerySlow:
		rec.Priority = "high"
		rec.Message = fmt.Sprintf("Promote %d products worth %.0f to speed up rotation", a.Count, a.TotalValue)
		rec.ValueImpact = roundTo(a.TotalValue*0.5, 2)
	case domain.StatusSlow:
		rec.Priority = "medium"
		rec.Message = fmt.Sprintf("Monitor %d products worth %.0f before they become very slow", a.Count, a.TotalValue)
	case domain.StatusFast, domain.StatusVeryFast:
		rec.Priority = "positive"
		rec.Message = fmt.Sprintf("Increase orders for %d best sellers", a.Count)
		rec.ValueImpact = a.TotalValue
	default:
		return rec, false
	}
	return rec, true
}

// ExportXLSX writes every snapshot record matching filter to w.
func (s *RotationService) ExportXLSX(ctx context.Context, filter domain.DeadStockFilter, w io.Writer) error {
	records, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return err
	}
	return export.WriteDeadStock(w, records)
}

// ExportToStorage uploads the snapshot workbook and returns its object key.
func (s *RotationService) ExportToStorage(ctx context.Context, filter domain.DeadStockFilter, store ObjectUploader, prefix string) (string, error) {
	records, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return "", err
	}

	data, err := export.DeadStockBytes(records)
	if err != nil {
		return "", err
	}

	key := storage.ObjectKey(prefix, fmt.Sprintf("dead_stock_%s.xlsx", s.now().UTC().Format("20060102_150405")))
	if err := store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("rows", len(records)).Msg("Dead-stock export uploaded")
	return key, nil
}

func (s *RotationService) ListIgnored(ctx context.Context) ([]domain.IgnoredProduct, error) {
	return s.ignored.List(ctx)
}

// IgnoreProduct excludes symbol from subsequent analysis runs.
func (s *RotationService) IgnoreProduct(ctx context.Context, symbol, reason string) (*domain.IgnoredProduct, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}

	item := domain.IgnoredProduct{Symbol: symbol, Reason: strings.TrimSpace(reason), CreatedAt: s.now()}
	if err := s.ignored.Add(ctx, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *RotationService) UnignoreProduct(ctx context.Context, symbol string) error {
	return s.ignored.Remove(ctx, strings.TrimSpace(symbol))
}
