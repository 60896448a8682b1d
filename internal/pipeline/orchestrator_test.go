package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/rotation"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	history *warehouse.History
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) FetchHistory(ctx context.Context, q warehouse.Query) (*warehouse.History, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.history, f.err
}

type fakeMirror struct{}

func (fakeMirror) UpsertProducts(_ context.Context, products []domain.Product, _ map[string]float64, now time.Time) ([]domain.Product, error) {
	out := make([]domain.Product, len(products))
	for i, p := range products {
		first := now.AddDate(0, 0, -200)
		p.FirstSeen = &first
		out[i] = p
	}
	return out, nil
}

type fakeSnapshot struct {
	runID    string
	records  []domain.RotationRecord
	replaced int
}

func (f *fakeSnapshot) ReplaceSnapshot(_ context.Context, runID string, _ time.Time, records []domain.RotationRecord) error {
	f.runID = runID
	f.records = records
	f.replaced++
	return nil
}

type fakeIgnored map[string]bool

func (f fakeIgnored) Symbols(context.Context) (map[string]bool, error) { return f, nil }

type fakeRuns struct {
	mu       sync.Mutex
	started  []domain.RunSummary
	finished []domain.RunSummary
}

func (f *fakeRuns) StartRun(_ context.Context, run domain.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run)
	return nil
}

func (f *fakeRuns) FinishRun(_ context.Context, run domain.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeRuns) LatestRun(context.Context) (*domain.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.finished) == 0 {
		return nil, nil
	}
	last := f.finished[len(f.finished)-1]
	return &last, nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.calls++
	return nil
}

type recordingPublisher struct{ runs []domain.RunSummary }

func (p *recordingPublisher) PublishRunCompleted(_ context.Context, run domain.RunSummary) error {
	p.runs = append(p.runs, run)
	return nil
}

func testConfig() Config {
	return Config{
		Query: warehouse.Query{
			LookbackDays:          365,
			RecentWindowDays:      90,
			StockWarehouseIDs:     []int{1},
			SalesWarehouseIDs:     []int{1},
			AggregateWarehouseIDs: []int{1},
			RecentWarehouseIDs:    []int{1},
			SaleDocTypes:          []int{10},
			ReturnDocTypes:        []int{6},
		},
		Thresholds: rotation.DefaultThresholds(),
	}
}

func testHistory() *warehouse.History {
	lastSale := runNow.AddDate(0, 0, -2)
	return &warehouse.History{
		Products: []domain.Product{
			{Symbol: "A1", Stock: 10, NetPrice: 5},
			{Symbol: "B2", Stock: 4, NetPrice: 20},
			{Symbol: "C3", Stock: 0, NetPrice: 1},
			{Symbol: "IGN", Stock: 3, NetPrice: 1},
		},
		Aggregates: map[string]domain.SalesAggregate{
			"A1": {Symbol: "A1", YearlyQuantity: 365, LastSaleDate: &lastSale},
		},
		Sales: map[string][]domain.SaleEvent{
			"A1": {
				{Symbol: "A1", Date: runNow.AddDate(0, 0, -5), Quantity: 2},
				{Symbol: "A1", Date: runNow.AddDate(0, 0, -4), Quantity: -1},
			},
		},
		Deliveries: map[string][]domain.DeliveryEvent{
			"A1": {{Symbol: "A1", Date: runNow.AddDate(0, 0, -30), Quantity: 20}},
		},
		DeliveryMethods: map[string]domain.DeliveryMethod{
			"A1": domain.DeliveryMethodReceipts,
		},
	}
}

type harness struct {
	orch      *Orchestrator
	source    *fakeSource
	snapshot  *fakeSnapshot
	runs      *fakeRuns
	cache     *countingInvalidator
	publisher *recordingPublisher
}

func newHarness(t *testing.T, source *fakeSource) *harness {
	t.Helper()
	h := &harness{
		source:    source,
		snapshot:  &fakeSnapshot{},
		runs:      &fakeRuns{},
		cache:     &countingInvalidator{},
		publisher: &recordingPublisher{},
	}
	orch, err := NewOrchestrator(testConfig(), Deps{
		Source:    source,
		Products:  fakeMirror{},
		Snapshot:  h.snapshot,
		Ignored:   fakeIgnored{"IGN": true},
		Runs:      h.runs,
		Caches:    []CacheInvalidator{h.cache},
		Publisher: h.publisher,
		Now:       func() time.Time { return runNow },
		NewRunID:  func() string { return "run-1" },
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

func TestRunAnalysis_PublishesSnapshot(t *testing.T) {
	h := newHarness(t, &fakeSource{history: testHistory()})

	run, err := h.orch.RunAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, 2, run.ProductsAnalyzed)
	assert.Equal(t, 1, run.ProductsSkipped)
	assert.Equal(t, 1, run.MalformedEvents)
	assert.Equal(t, 1, run.DeliveryMethods[domain.DeliveryMethodReceipts])
	assert.Equal(t, 1, run.DeliveryMethods[domain.DeliveryMethodNone])

	require.Equal(t, 1, h.snapshot.replaced)
	assert.Equal(t, "run-1", h.snapshot.runID)
	require.Len(t, h.snapshot.records, 2)
	for _, r := range h.snapshot.records {
		assert.Equal(t, "run-1", r.RunID)
		assert.NotEqual(t, "IGN", r.Symbol)
		assert.True(t, r.RotationStatus.Valid())
	}

	assert.Equal(t, 1, h.cache.calls)
	require.Len(t, h.publisher.runs, 1)
	require.Len(t, h.runs.finished, 1)
	assert.Equal(t, domain.RunStatusCompleted, h.runs.finished[0].Status)
}

func TestRunAnalysis_SourceFailureKeepsSnapshot(t *testing.T) {
	h := newHarness(t, &fakeSource{err: &warehouse.UnavailableError{Op: "ping", Err: errors.New("connection refused")}})

	run, err := h.orch.RunAnalysis(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.FailureReason, "connection refused")
	assert.Zero(t, h.snapshot.replaced)
	assert.Zero(t, h.cache.calls)
	assert.Empty(t, h.publisher.runs)

	latest, err := h.orch.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.RunStatusFailed, latest.Status)
}

func TestRunAnalysis_ConcurrentTriggerIsDropped(t *testing.T) {
	source := &fakeSource{
		history: testHistory(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newHarness(t, source)

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.RunAnalysis(context.Background())
		done <- err
	}()

	<-source.started
	assert.True(t, h.orch.Running())

	_, err := h.orch.RunAnalysis(context.Background())
	assert.ErrorIs(t, err, domain.ErrAnalysisInProgress)

	close(source.release)
	require.NoError(t, <-done)
	assert.False(t, h.orch.Running())
	assert.Equal(t, 1, h.snapshot.replaced)
	assert.Len(t, h.runs.started, 1)
}

func TestStartAnalysis_RunsInBackground(t *testing.T) {
	source := &fakeSource{
		history: testHistory(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newHarness(t, source)

	require.NoError(t, h.orch.StartAnalysis(context.Background()))
	<-source.started
	assert.ErrorIs(t, h.orch.StartAnalysis(context.Background()), domain.ErrAnalysisInProgress)

	close(source.release)
	assert.Eventually(t, func() bool { return !h.orch.Running() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.snapshot.replaced)
}

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(testConfig(), Deps{})
	assert.Error(t, err)
}
