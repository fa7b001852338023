// Package export renders a bot account's audit trail to a workbook for
// operators who want to review decisions outside the API.
package export

import (
	"fmt"
	"io"
	"time"

	"tradeengine/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Audit"

var header = []string{"Trade Offer ID", "Result", "Received Item Types", "Created At"}

// AuditWorkbook builds an .xlsx workbook of one bot account's audit trail,
// most recent record first as passed in, and writes it to w.
func AuditWorkbook(w io.Writer, records []models.AuditRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}

	for row, record := range records {
		excelRow := row + 2
		values := []interface{}{
			record.TradeOfferID,
			record.Result,
			record.ReceivedItemTypes,
			record.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("export: write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
