// Package export renders snapshot and proposal data as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	DeadStockSheet = "Dead stock"
	ProposalSheet  = "Proposals"
	dateLayout     = "2006-01-02"
)

var deadStockHeader = []interface{}{
	"Symbol", "Name", "Brand", "Category", "Size", "Color", "Season",
	"Stock", "Net price", "Frozen value", "Yearly qty", "Avg daily sales",
	"Days of stock", "Days without movement", "Last sale", "Product age (days)",
	"Deliveries", "Delivery method", "Status", "Recommendation",
}

var proposalHeader = []interface{}{
	"Symbol", "Name", "Brand", "Stock", "Recent sales", "Avg daily usage",
	"Lead time", "Order frequency", "Min stock", "Difference", "Status",
	"Order qty", "Net price", "VAT %", "Gross price", "Order value", "Estimated cost",
}

// WriteDeadStock writes records as a single-sheet workbook to w.
func WriteDeadStock(w io.Writer, records []domain.RotationRecord) error {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, deadStockRow(r))
	}
	return writeWorkbook(w, DeadStockSheet, deadStockHeader, rows)
}

// WriteProposals writes proposal items as a single-sheet workbook to w.
func WriteProposals(w io.Writer, items []domain.ProposalRecord) error {
	rows := make([][]interface{}, 0, len(items))
	for _, p := range items {
		rows = append(rows, []interface{}{
			p.Symbol, p.Name, p.Brand, p.Stock, p.RecentSalesQty, p.AvgDailyUsage,
			p.LeadTimeDays, p.OrderFrequencyDays, p.MinStock, p.Difference, string(p.Status),
			p.QuantityToOrder, p.PurchaseNet, p.VATRate, p.PurchaseGross, p.OrderValue, p.CostEstimated,
		})
	}
	return writeWorkbook(w, ProposalSheet, proposalHeader, rows)
}

// DeadStockBytes renders records into an in-memory workbook.
func DeadStockBytes(records []domain.RotationRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDeadStock(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deadStockRow(r domain.RotationRecord) []interface{} {
	var daysOfStock interface{} = "inf"
	if r.DaysOfStock != nil {
		daysOfStock = *r.DaysOfStock
	}
	var lastSale interface{} = ""
	if r.LastSaleDate != nil {
		lastSale = r.LastSaleDate.Format(dateLayout)
	}
	var age interface{} = ""
	if r.ProductAgeDays != nil {
		age = *r.ProductAgeDays
	}

	return []interface{}{
		r.Symbol, r.Name, r.Brand, r.Category, r.Size, r.Color, r.Season,
		r.Stock, r.NetPrice, r.FrozenValue, r.YearlyQuantity, r.AvgDailySales,
		daysOfStock, r.DaysNoMovement, lastSale, age,
		r.TotalDeliveries, string(r.DeliveryMethod), r.RotationStatus.Label(), r.Recommendation,
	}
}

func writeWorkbook(w io.Writer, sheet string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet, err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
