package creditreq

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Credit Requests"

func recordCells(key string, r Record) []string {
	return []string{
		r.Date, r.CreditType, r.IssueType, r.CustomerNumber,
		r.InvoiceNumber, r.ItemNumber, AsString(r.Quantity), r.UnitPrice.StringFixed(2),
		r.ExtendedPrice.StringFixed(2), r.CorrectedUnitPrice.StringFixed(2),
		r.ExtendedCorrectPrice.StringFixed(2), r.CreditRequestTotal.StringFixed(2),
		r.RequestedBy, r.ReasonForCredit, r.Status, r.TicketNumber,
		r.SalesRep, r.TypeCode, key, r.RTNCRNumber,
	}
}

// sortedKeys gives exports a stable row order.
func sortedKeys(records map[string]Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildWorkbook renders records into an xlsx workbook in the legacy column
// order. The store key is written to the Record ID column.
func BuildWorkbook(records map[string]Record) (*excelize.File, error) {
	xl := excelize.NewFile()
	index, err := xl.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	xl.SetActiveSheet(index)
	xl.DeleteSheet("Sheet1")

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := xl.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, key := range sortedKeys(records) {
		cells := recordCells(key, records[key])
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		axis := fmt.Sprintf("A%d", i+2)
		if err := xl.SetSheetRow(exportSheet, axis, &row); err != nil {
			return nil, err
		}
	}
	return xl, nil
}

// WriteCSV streams records as CSV in the legacy column order.
func WriteCSV(w io.Writer, records map[string]Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, key := range sortedKeys(records) {
		if err := cw.Write(recordCells(key, records[key])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
