package records

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

// searchRow is one result. The store key is surfaced as Record ID, the
// way the dashboards always displayed it.
type searchRow struct {
	Key string `json:"Record ID"`
	creditreq.Record
}

type searchRequest struct {
	Mode    string `json:"mode"` // ticket | invoice | item | pair
	Query   string `json:"query"`
	Invoice string `json:"invoice"`
	Item    string `json:"item"`
}

func matchTicket(rec creditreq.Record, ticket string) bool {
	if creditreq.NormalizeTicket(rec.TicketNumber) == ticket {
		return true
	}
	// Old records sometimes carry the ticket only inside status notes.
	return strings.Contains(strings.ToUpper(rec.Status), ticket)
}

func runSearch(all map[string]creditreq.Record, req searchRequest) (map[string]creditreq.Record, error) {
	out := make(map[string]creditreq.Record)
	switch req.Mode {
	case "ticket":
		ticket := creditreq.NormalizeTicket(req.Query)
		if ticket == "" {
			return nil, fmt.Errorf("ticket query is required")
		}
		for k, rec := range all {
			if matchTicket(rec, ticket) {
				out[k] = rec
			}
		}
	case "invoice":
		invoice := creditreq.NormalizeInvoice(req.Query)
		if invoice == "" {
			return nil, fmt.Errorf("invoice query is required")
		}
		for k, rec := range all {
			if creditreq.NormalizeInvoice(rec.InvoiceNumber) == invoice {
				out[k] = rec
			}
		}
	case "item":
		item := creditreq.NormalizeItem(req.Query)
		if item == "" {
			return nil, fmt.Errorf("item query is required")
		}
		for k, rec := range all {
			if creditreq.NormalizeItem(rec.ItemNumber) == item {
				out[k] = rec
			}
		}
	case "pair":
		p := creditreq.NewPair(req.Invoice, req.Item)
		if p.Empty() {
			return nil, fmt.Errorf("pair search needs both invoice and item")
		}
		for k, rec := range all {
			if creditreq.NewPair(rec.InvoiceNumber, rec.ItemNumber) == p {
				out[k] = rec
			}
		}
	default:
		return nil, fmt.Errorf("unknown search mode %q", req.Mode)
	}
	return out, nil
}

// batchPairSearch matches every pair listed in an uploaded CSV/workbook.
func batchPairSearch(all map[string]creditreq.Record, raw [][]string) (map[string]creditreq.Record, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("uploaded file has no data rows")
	}
	idx := creditreq.HeaderIndex(raw[0])
	invCol, ok := idx["Invoice Number"]
	if !ok {
		invCol, ok = idx["Invoice"]
	}
	if !ok {
		return nil, fmt.Errorf("missing Invoice Number column")
	}
	itemCol, ok := idx["Item Number"]
	if !ok {
		itemCol, ok = idx["Item"]
	}
	if !ok {
		return nil, fmt.Errorf("missing Item Number column")
	}

	wanted := make(map[creditreq.Pair]struct{})
	for _, row := range raw[1:] {
		if invCol >= len(row) || itemCol >= len(row) {
			continue
		}
		p := creditreq.NewPair(row[invCol], row[itemCol])
		if !p.Empty() {
			wanted[p] = struct{}{}
		}
	}

	out := make(map[string]creditreq.Record)
	for k, rec := range all {
		if _, hit := wanted[creditreq.NewPair(rec.InvoiceNumber, rec.ItemNumber)]; hit {
			out[k] = rec
		}
	}
	return out, nil
}

// Search runs the record search. JSON bodies carry a mode + query;
// multipart uploads run a batch pair search. ?format=csv streams the
// results as CSV instead of JSON.
func Search(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("search load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		var matches map[string]creditreq.Record
		ct := r.Header.Get(constants.HeaderContent)
		if strings.Contains(strings.ToLower(ct), "multipart/form-data") {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
				return
			}
			raw, err := creditreq.ParseWorkbook(data, header.Filename)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParsingFailed)
				return
			}
			matches, err = batchPairSearch(all, raw)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else {
			var req searchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
			matches, err = runSearch(all, req)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		if r.URL.Query().Get("format") == "csv" {
			name := fmt.Sprintf("credit_search_%s.csv", time.Now().Format("20060102_150405"))
			w.Header().Set("Content-Type", constants.ContentTypeCSV)
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
			if err := creditreq.WriteCSV(w, matches); err != nil {
				api.LogError("search csv write: %v", err)
			}
			return
		}

		rows := make([]searchRow, 0, len(matches))
		for k, rec := range matches {
			rows = append(rows, searchRow{Key: k, Record: rec})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"rows":    rows,
			"count":   len(rows),
		})
	}
}
