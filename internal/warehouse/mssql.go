package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MSSQLSource reads history from the SQL Server warehouse.
type MSSQLSource struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewMSSQLSource prepares a connection pool. The server is not contacted
// until the first fetch.
func NewMSSQLSource(cfg config.WarehouseConfig) (*MSSQLSource, error) {
	db, err := sqlx.Open("sqlserver", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &MSSQLSource{db: db, queryTimeout: timeout}, nil
}

// BuildDSN renders a sqlserver:// connection URL.
func BuildDSN(cfg config.WarehouseConfig) string {
	host := cfg.Host
	if cfg.Port > 0 && cfg.Instance == "" {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	query := url.Values{}
	if cfg.Database != "" {
		query.Set("database", cfg.Database)
	}
	if cfg.ConnectTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	query.Set("TrustServerCertificate", "true")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     host,
		RawQuery: query.Encode(),
	}
	if cfg.Instance != "" {
		u.Path = cfg.Instance
	}
	return u.String()
}

// Close releases the connection pool.
func (s *MSSQLSource) Close() error {
	return s.db.Close()
}

// Ping checks that the warehouse answers.
func (s *MSSQLSource) Ping(ctx context.Context) error {
	return unavailable("ping", s.db.PingContext(ctx))
}

// FetchHistory runs the extraction queries concurrently and assembles the
// result. Any failure is reported as an *UnavailableError.
func (s *MSSQLSource) FetchHistory(ctx context.Context, q Query) (*History, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid warehouse query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	lookback := sql.Named("lookback", q.LookbackDays)
	recent := sql.Named("recent", q.RecentWindowDays)

	var raw rawHistory
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.selectRows(gctx, "products", &raw.products, productsQuery(q))
	})
	g.Go(func() error {
		return s.selectRows(gctx, "aggregates", &raw.aggregates, aggregatesQuery(q), lookback)
	})
	g.Go(func() error {
		return s.selectRows(gctx, "recent sales", &raw.recent, recentQuery(q), recent)
	})
	g.Go(func() error {
		return s.selectRows(gctx, "daily sales", &raw.sales, dailySalesQuery(q), lookback)
	})
	g.Go(func() error {
		return s.selectRows(gctx, "receipts", &raw.receipts, receiptsQuery(q))
	})
	g.Go(func() error {
		return s.selectRows(gctx, "first sales", &raw.firstSales, firstSaleQuery(q))
	})
	g.Go(func() error {
		return s.selectRows(gctx, "purchase prices", &raw.prices, purchasePricesQuery(q))
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := assemble(raw)
	log.Info().
		Int("products", len(h.Products)).
		Int("sale_rows", len(raw.sales)).
		Int("receipt_rows", len(raw.receipts)).
		Dur("took", time.Since(start)).
		Msg("Fetched warehouse history")

	return h, nil
}

// FetchDailySales returns per-product daily net sales matching f, oldest
// first per symbol. Failures against the server are *UnavailableError.
func (s *MSSQLSource) FetchDailySales(ctx context.Context, q Query, f domain.SalesFilter) ([]domain.DailyProductSales, error) {
	if err := validateSalesFilter(q, f); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query, args := productSalesQuery(q, f)
	start := time.Now()

	var rows []salesRow
	if err := s.selectRows(ctx, "product sales", &rows, query, args...); err != nil {
		return nil, err
	}

	sales := toDailySales(rows)
	log.Info().
		Int("rows", len(sales)).
		Int("days", f.Days).
		Str("category", f.Category).
		Str("brand", f.Brand).
		Str("symbol", f.Symbol).
		Dur("took", time.Since(start)).
		Msg("Fetched product sales")

	return sales, nil
}

func (s *MSSQLSource) selectRows(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		return unavailable("query "+op, err)
	}
	return nil
}
