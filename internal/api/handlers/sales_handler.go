package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

// SalesService is the part of service.SalesService the handler uses.
type SalesService interface {
	Seasonality(ctx context.Context, f domain.SalesFilter) (*domain.SeasonalityReport, error)
	Summary(ctx context.Context, f domain.SalesFilter) (*domain.SalesSummary, error)
}

type SalesHandler struct {
	service SalesService
}

func NewSalesHandler(service SalesService) *SalesHandler {
	return &SalesHandler{service: service}
}

func parseSalesFilter(c *gin.Context) (domain.SalesFilter, error) {
	f := domain.SalesFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Brand:    strings.TrimSpace(c.Query("brand")),
		Symbol:   strings.TrimSpace(c.Query("symbol")),
	}
	if raw := strings.TrimSpace(c.Query("warehouses")); raw != "" {
		ids, err := config.ParseIntList(raw)
		if err != nil {
			return f, fmt.Errorf("%w: warehouses must be a comma separated list of ids", domain.ErrInvalidInput)
		}
		f.WarehouseIDs = ids
	}
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return f, fmt.Errorf("%w: days must be an integer", domain.ErrInvalidInput)
		}
		f.Days = v
	}
	return f, nil
}

func (h *SalesHandler) GetSeasonality(c *gin.Context) {
	f, err := parseSalesFilter(c)
	if err != nil {
		respondError(c, "invalid parameters", err)
		return
	}

	report, err := h.service.Seasonality(c.Request.Context(), f)
	if err != nil {
		respondError(c, "failed to compute seasonality", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SalesHandler) GetSummary(c *gin.Context) {
	f, err := parseSalesFilter(c)
	if err != nil {
		respondError(c, "invalid parameters", err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), f)
	if err != nil {
		respondError(c, "failed to summarise sales", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
