package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRotation struct {
	triggerErr error
	page       *domain.DeadStockPage
	queryErr   error
	lastFilter domain.DeadStockFilter
	ignored    []domain.IgnoredProduct
	removeErr  error
}

func (s *stubRotation) TriggerAnalysis() error { return s.triggerErr }

func (s *stubRotation) Status(context.Context) (*service.AnalysisStatus, error) {
	return &service.AnalysisStatus{Running: s.triggerErr != nil}, nil
}

func (s *stubRotation) Query(_ context.Context, f domain.DeadStockFilter) (*domain.DeadStockPage, error) {
	s.lastFilter = f
	return s.page, s.queryErr
}

func (s *stubRotation) ValueReport(context.Context) (*domain.RotationValueReport, error) {
	return nil, domain.ErrNoSnapshot
}

func (s *stubRotation) ExportXLSX(_ context.Context, _ domain.DeadStockFilter, w io.Writer) error {
	if s.queryErr != nil {
		return s.queryErr
	}
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

func (s *stubRotation) ListIgnored(context.Context) ([]domain.IgnoredProduct, error) {
	return s.ignored, nil
}

func (s *stubRotation) IgnoreProduct(_ context.Context, symbol, reason string) (*domain.IgnoredProduct, error) {
	item := domain.IgnoredProduct{Symbol: symbol, Reason: reason}
	s.ignored = append(s.ignored, item)
	return &item, nil
}

func (s *stubRotation) UnignoreProduct(context.Context, string) error { return s.removeErr }

type stubProposals struct {
	params domain.ProposalParams
	saved  domain.StockPeriodOverride
}

func (s *stubProposals) Compute(_ context.Context, p domain.ProposalParams) (*domain.ProposalResult, error) {
	s.params = p
	if p.MinStockDays > 365 {
		return nil, domain.ErrInvalidInput
	}
	return &domain.ProposalResult{Items: []domain.ProposalRecord{}, Params: p}, nil
}

func (s *stubProposals) ExportXLSX(context.Context, domain.ProposalParams, io.Writer) error {
	return nil
}

func (s *stubProposals) ListPeriods(context.Context) ([]domain.StockPeriodOverride, error) {
	return []domain.StockPeriodOverride{}, nil
}

func (s *stubProposals) SavePeriod(_ context.Context, p domain.StockPeriodOverride) (*domain.StockPeriodOverride, error) {
	if p.DeliveryTimeDays < 1 || p.DeliveryTimeDays > 365 {
		return nil, domain.ErrInvalidPeriod
	}
	s.saved = p
	return &p, nil
}

func (s *stubProposals) DeletePeriod(context.Context, string) error { return domain.ErrNotFound }

func (s *stubProposals) ImportPeriods(_ context.Context, r io.Reader) (*service.PeriodImportResult, error) {
	body, _ := io.ReadAll(r)
	return &service.PeriodImportResult{Imported: len(body)}, nil
}

func newTestRouter(rot *stubRotation, prop *stubProposals) *gin.Engine {
	return NewRouter(&Services{RotationService: rot, ProposalService: prop}, nil)
}

func do(r http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&stubRotation{}, &stubProposals{}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunAnalysis_AcceptedAndConflict(t *testing.T) {
	rot := &stubRotation{}
	r := newTestRouter(rot, &stubProposals{})

	w := do(r, http.MethodPost, "/api/v1/rotation/analysis/run", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	rot.triggerErr = domain.ErrAnalysisInProgress
	w = do(r, http.MethodPost, "/api/v1/rotation/analysis/run", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeadStock_ParsesFilter(t *testing.T) {
	rot := &stubRotation{page: &domain.DeadStockPage{Total: 1, AnalysisCompleted: true}}
	r := newTestRouter(rot, &stubProposals{})

	w := do(r, http.MethodGet, "/api/v1/rotation/dead-stock?rotation_status=dead,Slow&min_days=90&min_value=10.5&sort_by=frozen_value&sort_dir=ASC&page=2&page_size=20&search=whey", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f := rot.lastFilter
	assert.Equal(t, []domain.RotationStatus{domain.StatusDead, domain.StatusSlow}, f.RotationStatus)
	require.NotNil(t, f.MinDays)
	assert.Equal(t, 90, *f.MinDays)
	require.NotNil(t, f.MinValue)
	assert.Equal(t, 10.5, *f.MinValue)
	assert.Equal(t, "asc", f.SortDir)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, "whey", f.Search)
}

func TestDeadStock_RejectsUnknownStatus(t *testing.T) {
	w := do(newTestRouter(&stubRotation{}, &stubProposals{}), http.MethodGet, "/api/v1/rotation/dead-stock?rotation_status=ZOMBIE", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeadStock_EmptyStateBeforeFirstRun(t *testing.T) {
	rot := &stubRotation{queryErr: domain.ErrNoSnapshot}
	w := do(newTestRouter(rot, &stubProposals{}), http.MethodGet, "/api/v1/rotation/dead-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page domain.DeadStockPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.False(t, page.AnalysisCompleted)
	assert.Empty(t, page.Items)
	assert.Len(t, page.CategoryStats, len(domain.AllRotationStatuses))
}

func TestDeadStock_ServerError(t *testing.T) {
	rot := &stubRotation{queryErr: errors.New("db down")}
	w := do(newTestRouter(rot, &stubProposals{}), http.MethodGet, "/api/v1/rotation/dead-stock", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestValueReport_EmptyState(t *testing.T) {
	w := do(newTestRouter(&stubRotation{}, &stubProposals{}), http.MethodGet, "/api/v1/rotation/value-report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"categories":[]`)
}

func TestExportXLSX(t *testing.T) {
	w := do(newTestRouter(&stubRotation{}, &stubProposals{}), http.MethodGet, "/api/v1/rotation/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dead_stock_")
	assert.Equal(t, "xlsx-bytes", w.Body.String())

	w = do(newTestRouter(&stubRotation{queryErr: domain.ErrNoSnapshot}, &stubProposals{}), http.MethodGet, "/api/v1/rotation/export.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIgnoredProducts(t *testing.T) {
	rot := &stubRotation{}
	r := newTestRouter(rot, &stubProposals{})

	w := do(r, http.MethodPost, "/api/v1/rotation/ignored", strings.NewReader(`{"symbol":"SKU-1","reason":"sample"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/v1/rotation/ignored", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/rotation/ignored", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SKU-1")

	rot.removeErr = domain.ErrNotFound
	w = do(r, http.MethodDelete, "/api/v1/rotation/ignored/SKU-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProposals(t *testing.T) {
	prop := &stubProposals{}
	r := newTestRouter(&stubRotation{}, prop)

	w := do(r, http.MethodGet, "/api/v1/proposals?category_tag=suplementy&min_stock_days=45", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "suplementy", prop.params.CategoryTag)
	assert.Equal(t, 45, prop.params.MinStockDays)

	w = do(r, http.MethodGet, "/api/v1/proposals?min_stock_days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/proposals?min_stock_days=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockPeriods(t *testing.T) {
	prop := &stubProposals{}
	r := newTestRouter(&stubRotation{}, prop)

	w := do(r, http.MethodPut, "/api/v1/proposals/periods/SUP-1", strings.NewReader(`{"delivery_time_days":14,"order_frequency_days":16}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUP-1", prop.saved.Symbol)
	assert.Equal(t, 16, prop.saved.OrderFrequencyDays)

	w = do(r, http.MethodPut, "/api/v1/proposals/periods/SUP-1", strings.NewReader(`{"delivery_time_days":0,"order_frequency_days":16}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/proposals/periods/SUP-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportPeriods_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "periods.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("12345"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/periods/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newTestRouter(&stubRotation{}, &stubProposals{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":5`)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

type stubSales struct {
	filter domain.SalesFilter
	err    error
}

func (s *stubSales) Seasonality(_ context.Context, f domain.SalesFilter) (*domain.SeasonalityReport, error) {
	s.filter = f
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SeasonalityReport{Items: []domain.SeasonalityProduct{{Symbol: "A1", PeakWeek: "2024-22"}}, TotalProducts: 1, Filter: f}, nil
}

func (s *stubSales) Summary(_ context.Context, f domain.SalesFilter) (*domain.SalesSummary, error) {
	s.filter = f
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SalesSummary{Yearly: []domain.SalesPeriodTotal{{Period: "2024", NetValue: 520}}, Filter: f}, nil
}

func TestSales_Seasonality(t *testing.T) {
	sales := &stubSales{}
	r := NewRouter(&Services{SalesService: sales}, nil)

	w := do(r, http.MethodGet, "/api/v1/sales/seasonality?warehouses=1,7&category=Suplementy&brand=Acme&symbol=A1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.SalesFilter{WarehouseIDs: []int{1, 7}, Category: "Suplementy", Brand: "Acme", Symbol: "A1"}, sales.filter)

	var body domain.SeasonalityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "2024-22", body.Items[0].PeakWeek)

	w = do(r, http.MethodGet, "/api/v1/sales/seasonality?warehouses=1,x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sales.err = domain.ErrSourceUnavailable
	w = do(r, http.MethodGet, "/api/v1/sales/seasonality", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSales_Summary(t *testing.T) {
	sales := &stubSales{}
	r := NewRouter(&Services{SalesService: sales}, nil)

	w := do(r, http.MethodGet, "/api/v1/sales/summary?days=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 90, sales.filter.Days)
	assert.Contains(t, w.Body.String(), `"period":"2024"`)

	w = do(r, http.MethodGet, "/api/v1/sales/summary?days=ninety", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sales.err = domain.ErrInvalidInput
	w = do(r, http.MethodGet, "/api/v1/sales/summary?days=5000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
