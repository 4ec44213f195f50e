package creditreq

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// RequiredColumns are the 12 headers a credit request template must carry.
// Sales Rep is optional and defaults to blank.
var RequiredColumns = []string{
	"Credit Type", "Issue Type", "Customer Number", "Invoice Number",
	"Item Number", "QTY", "Unit Price", "Extended Price",
	"Corrected Unit Price", "Credit Request Total", "Requested By",
	"Reason for Credit",
}

// ParseWorkbook reads an uploaded template into raw rows. The format is
// picked from the filename extension: xlsx/xlsm via excelize, legacy xls via
// the extrame reader, csv as a fallback.
func ParseWorkbook(data []byte, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(data)
	case ".xls":
		return parseXLS(data)
	case ".csv":
		return parseCSV(data)
	}
	// Unlabeled uploads: try the modern reader first, then csv.
	rows, err := parseXLSX(data)
	if err == nil {
		return rows, nil
	}
	return parseCSV(data)
}

func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in workbook")
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func parseXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("no sheets found in xls workbook")
	}
	rows := workbook.ReadAllCells(100000)
	if len(rows) == 0 {
		return nil, errors.New("worksheet is empty")
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

// HeaderIndex maps trimmed header names to their column positions.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

// MissingColumns returns every required column absent from the header, in
// canonical order.
func MissingColumns(header map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// RowIssue is a per-row problem found while cleaning a template.
type RowIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// CleanRows converts raw template rows into Records: money and quantity
// fields are normalized, rows lacking both invoice and item are dropped
// unless they are Tax lines, and the extended correct price is recomputed.
// Row numbers in issues are 1-based workbook rows (header is row 1).
func CleanRows(rows [][]string) ([]Record, []RowIssue, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("template is empty")
	}
	idx := HeaderIndex(rows[0])
	if missing := MissingColumns(idx); len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var (
		records []Record
		issues  []RowIssue
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) == 0 {
			continue
		}
		rec := Record{
			CreditType:         cell(row, idx, "Credit Type"),
			IssueType:          cell(row, idx, "Issue Type"),
			CustomerNumber:     cell(row, idx, "Customer Number"),
			InvoiceNumber:      NormalizeInvoice(cell(row, idx, "Invoice Number")),
			ItemNumber:         NormalizeItem(cell(row, idx, "Item Number")),
			Quantity:           ParseQuantity(cell(row, idx, "QTY")),
			UnitPrice:          ParseMoney(cell(row, idx, "Unit Price")),
			ExtendedPrice:      ParseMoney(cell(row, idx, "Extended Price")),
			CorrectedUnitPrice: ParseMoney(cell(row, idx, "Corrected Unit Price")),
			CreditRequestTotal: ParseMoney(cell(row, idx, "Credit Request Total")),
			RequestedBy:        cell(row, idx, "Requested By"),
			ReasonForCredit:    cell(row, idx, "Reason for Credit"),
			SalesRep:           cell(row, idx, "Sales Rep"),
		}
		if !rec.IsTax() && (rec.InvoiceNumber == "" || rec.ItemNumber == "") {
			issues = append(issues, RowIssue{Row: rowNum, Message: "dropped: missing invoice or item number"})
			continue
		}
		if rec.IsTax() {
			rec.ItemNumber = ""
		}
		rec.ExtendedCorrectPrice = ExtendedCorrectPrice(rec.Quantity, rec.UnitPrice, rec.CorrectedUnitPrice)
		records = append(records, rec)
	}
	return records, issues, nil
}

// ExtendedCorrectPrice is QTY*Unit - QTY*Corrected, the credit amount the
// template derives for price-correction lines.
func ExtendedCorrectPrice(qty float64, unit, corrected decimal.Decimal) decimal.Decimal {
	q := decimal.NewFromFloat(qty)
	return unit.Mul(q).Sub(corrected.Mul(q))
}
