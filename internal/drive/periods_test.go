package drive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf := new(bytes.Buffer)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

func TestParsePeriodSheet(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"Symbol", "Lead Time", "Order Frequency", "Optimal Qty", "Notes"},
		{"SUP-001", 14, 16, 48, "bulk supplier"},
		{"SUP-002", "7", "30", "", ""},
		{"", 7, 30, "", ""},
		{"SUP-003", "soon", 30, "", ""},
		{"SUP-004", 2.5, 30, "", ""},
	})

	periods, rowErrors, err := ParsePeriodSheet(buf)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	assert.Equal(t, "SUP-001", periods[0].Symbol)
	assert.Equal(t, 14, periods[0].DeliveryTimeDays)
	assert.Equal(t, 16, periods[0].OrderFrequencyDays)
	require.NotNil(t, periods[0].OptimalOrderQuantity)
	assert.Equal(t, 48.0, *periods[0].OptimalOrderQuantity)
	assert.Equal(t, "bulk supplier", periods[0].Notes)
	assert.Nil(t, periods[1].OptimalOrderQuantity)

	require.Len(t, rowErrors, 3)
	assert.Equal(t, 4, rowErrors[0].Row)
	assert.Equal(t, "missing symbol", rowErrors[0].Reason)
	assert.Equal(t, "SUP-003", rowErrors[1].Symbol)
	assert.Contains(t, rowErrors[2].Reason, "whole number")
}

func TestParsePeriodSheet_RequiresHeader(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"Symbol", "Notes"},
		{"SUP-001", "x"},
	})

	_, _, err := ParsePeriodSheet(buf)
	assert.ErrorContains(t, err, "header")
}
