package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

// RotationService is the part of service.RotationService the handler uses.
type RotationService interface {
	TriggerAnalysis() error
	Status(ctx context.Context) (*service.AnalysisStatus, error)
	Query(ctx context.Context, filter domain.DeadStockFilter) (*domain.DeadStockPage, error)
	ValueReport(ctx context.Context) (*domain.RotationValueReport, error)
	ExportXLSX(ctx context.Context, filter domain.DeadStockFilter, w io.Writer) error
	ListIgnored(ctx context.Context) ([]domain.IgnoredProduct, error)
	IgnoreProduct(ctx context.Context, symbol, reason string) (*domain.IgnoredProduct, error)
	UnignoreProduct(ctx context.Context, symbol string) error
}

type RotationHandler struct {
	service RotationService
}

func NewRotationHandler(service RotationService) *RotationHandler {
	return &RotationHandler{service: service}
}

func parseDeadStockFilter(c *gin.Context) (domain.DeadStockFilter, error) {
	filter := domain.DeadStockFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	if raw := strings.TrimSpace(c.Query("min_days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, fmt.Errorf("%w: min_days must be a non-negative integer", domain.ErrInvalidInput)
		}
		filter.MinDays = &v
	}
	if raw := strings.TrimSpace(c.Query("min_value")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, fmt.Errorf("%w: min_value must be a non-negative number", domain.ErrInvalidInput)
		}
		filter.MinValue = &v
	}

	filter.Category = strings.TrimSpace(c.Query("category"))
	filter.Brand = strings.TrimSpace(c.Query("brand"))
	filter.Search = strings.TrimSpace(c.Query("search"))

	// rotation_status=DEAD,slow or repeated rotation_status params
	for _, raw := range c.QueryArray("rotation_status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := domain.ParseRotationStatus(part)
			if !ok {
				return filter, fmt.Errorf("%w: unknown rotation_status %q", domain.ErrInvalidInput, part)
			}
			filter.RotationStatus = append(filter.RotationStatus, status)
		}
	}

	filter.SortBy = strings.ToLower(strings.TrimSpace(c.Query("sort_by")))
	sortDir := strings.ToLower(strings.TrimSpace(c.Query("sort_dir")))
	if sortDir != "asc" {
		sortDir = "desc"
	}
	filter.SortDir = sortDir

	return filter, nil
}

func (h *RotationHandler) RunAnalysis(c *gin.Context) {
	if err := h.service.TriggerAnalysis(); err != nil {
		respondError(c, "analysis not started", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *RotationHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch analysis status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *RotationHandler) GetDeadStock(c *gin.Context) {
	filter, err := parseDeadStockFilter(c)
	if err != nil {
		respondError(c, "invalid filter", err)
		return
	}

	page, err := h.service.Query(c.Request.Context(), filter)
	if errors.Is(err, domain.ErrNoSnapshot) {
		c.JSON(http.StatusOK, domain.EmptyDeadStockPage(filter.Page, filter.PageSize))
		return
	}
	if err != nil {
		respondError(c, "failed to fetch dead stock", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RotationHandler) GetValueReport(c *gin.Context) {
	report, err := h.service.ValueReport(c.Request.Context())
	if errors.Is(err, domain.ErrNoSnapshot) {
		c.JSON(http.StatusOK, &domain.RotationValueReport{
			Categories:      []domain.RotationValueCategory{},
			Recommendations: []domain.ValueRecommendation{},
		})
		return
	}
	if err != nil {
		respondError(c, "failed to fetch value report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *RotationHandler) ExportXLSX(c *gin.Context) {
	filter, err := parseDeadStockFilter(c)
	if err != nil {
		respondError(c, "invalid filter", err)
		return
	}

	// Render before writing headers so failures still produce a JSON error.
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, "failed to export dead stock", err)
		return
	}

	filename := fmt.Sprintf("dead_stock_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *RotationHandler) ListIgnored(c *gin.Context) {
	items, err := h.service.ListIgnored(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch ignored products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type ignoreRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Reason string `json:"reason"`
}

func (h *RotationHandler) AddIgnored(c *gin.Context) {
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	item, err := h.service.IgnoreProduct(c.Request.Context(), req.Symbol, req.Reason)
	if err != nil {
		respondError(c, "failed to ignore product", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *RotationHandler) RemoveIgnored(c *gin.Context) {
	if err := h.service.UnignoreProduct(c.Request.Context(), c.Param("symbol")); err != nil {
		respondError(c, "failed to remove ignored product", err)
		return
	}
	c.Status(http.StatusNoContent)
}
