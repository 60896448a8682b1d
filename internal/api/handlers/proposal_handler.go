package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

// ProposalService is the part of service.ProposalService the handler uses.
type ProposalService interface {
	Compute(ctx context.Context, params domain.ProposalParams) (*domain.ProposalResult, error)
	ExportXLSX(ctx context.Context, params domain.ProposalParams, w io.Writer) error
	ListPeriods(ctx context.Context) ([]domain.StockPeriodOverride, error)
	SavePeriod(ctx context.Context, period domain.StockPeriodOverride) (*domain.StockPeriodOverride, error)
	DeletePeriod(ctx context.Context, symbol string) error
	ImportPeriods(ctx context.Context, r io.Reader) (*service.PeriodImportResult, error)
}

type ProposalHandler struct {
	service ProposalService
}

func NewProposalHandler(service ProposalService) *ProposalHandler {
	return &ProposalHandler{service: service}
}

func parseProposalParams(c *gin.Context) (domain.ProposalParams, error) {
	params := domain.ProposalParams{CategoryTag: strings.TrimSpace(c.Query("category_tag"))}
	if raw := strings.TrimSpace(c.Query("min_stock_days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("%w: min_stock_days must be an integer", domain.ErrInvalidInput)
		}
		params.MinStockDays = v
	}
	return params, nil
}

func (h *ProposalHandler) GetProposals(c *gin.Context) {
	params, err := parseProposalParams(c)
	if err != nil {
		respondError(c, "invalid parameters", err)
		return
	}

	if strings.EqualFold(c.Query("format"), "xlsx") {
		var buf bytes.Buffer
		if err := h.service.ExportXLSX(c.Request.Context(), params, &buf); err != nil {
			respondError(c, "failed to export proposals", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="purchase_proposals.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
		return
	}

	result, err := h.service.Compute(c.Request.Context(), params)
	if err != nil {
		respondError(c, "failed to compute proposals", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProposalHandler) ListPeriods(c *gin.Context) {
	periods, err := h.service.ListPeriods(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch stock periods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": periods})
}

type periodRequest struct {
	DeliveryTimeDays     int      `json:"delivery_time_days"`
	OrderFrequencyDays   int      `json:"order_frequency_days"`
	OptimalOrderQuantity *float64 `json:"optimal_order_quantity"`
	Notes                string   `json:"notes"`
}

func (h *ProposalHandler) SavePeriod(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	saved, err := h.service.SavePeriod(c.Request.Context(), domain.StockPeriodOverride{
		Symbol:               c.Param("symbol"),
		DeliveryTimeDays:     req.DeliveryTimeDays,
		OrderFrequencyDays:   req.OrderFrequencyDays,
		OptimalOrderQuantity: req.OptimalOrderQuantity,
		Notes:                req.Notes,
	})
	if err != nil {
		respondError(c, "failed to save stock period", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ProposalHandler) DeletePeriod(c *gin.Context) {
	if err := h.service.DeletePeriod(c.Request.Context(), c.Param("symbol")); err != nil {
		respondError(c, "failed to delete stock period", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProposalHandler) ImportPeriods(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "details": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload", "details": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.service.ImportPeriods(c.Request.Context(), file)
	if err != nil {
		respondError(c, "failed to import stock periods", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
