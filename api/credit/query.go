package credit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/api/utils"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

type pairCheck struct {
	Invoice string `json:"invoice"`
	Item    string `json:"item"`
	Exists  bool   `json:"exists"`
}

// CheckPairs reports which (invoice, item) pairs already exist in the
// store. Pairs arrive as JSON or as a CSV/workbook upload carrying
// Invoice Number / Item Number columns.
func CheckPairs(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}

		var checks []pairCheck
		ct := r.Header.Get(constants.HeaderContent)
		if strings.Contains(strings.ToLower(ct), "multipart/form-data") {
			data, filename, err := uploadedFile(r)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
				return
			}
			raw, err := creditreq.ParseWorkbook(data, filename)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParsingFailed)
				return
			}
			if len(raw) < 2 {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
				return
			}
			idx := creditreq.HeaderIndex(raw[0])
			invCol, itemCol := pairColumns(idx)
			if invCol < 0 || itemCol < 0 {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatError(constants.ErrMissingColumns, "Invoice Number, Item Number"))
				return
			}
			for _, row := range raw[1:] {
				if invCol >= len(row) {
					continue
				}
				item := ""
				if itemCol < len(row) {
					item = row[itemCol]
				}
				if strings.TrimSpace(row[invCol]) == "" {
					continue
				}
				checks = append(checks, pairCheck{Invoice: row[invCol], Item: item})
			}
		} else {
			var req struct {
				Pairs []pairCheck `json:"pairs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
			checks = req.Pairs
		}

		existing, err := records.Pairs(r.Context())
		if err != nil {
			api.LogError("check pairs: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		found := 0
		for i := range checks {
			p := creditreq.NewPair(checks[i].Invoice, checks[i].Item)
			checks[i].Invoice = p.Invoice
			checks[i].Item = p.Item
			_, checks[i].Exists = existing[p]
			if checks[i].Exists {
				found++
			}
		}

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"pairs":   checks,
			"found":   found,
			"checked": len(checks),
		})
	}
}

// pairColumns finds the invoice/item columns, accepting the template
// headers or the short billing-export names.
func pairColumns(idx map[string]int) (int, int) {
	inv, ok := idx["Invoice Number"]
	if !ok {
		inv, ok = idx["Invoice"]
		if !ok {
			inv = -1
		}
	}
	item, ok := idx["Item Number"]
	if !ok {
		item, ok = idx["Item"]
		if !ok {
			item = -1
		}
	}
	return inv, item
}

// ListUploads returns the upload log newest first, paginated.
func ListUploads(uploads *store.UploadLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		params, err := utils.ExtractPagination(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries, total, err := uploads.List(r.Context(), params.Limit, params.Offset)
		if err != nil {
			api.LogError("list uploads: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		params.SetPaginationStats(total)

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"rows":       entries,
			"pagination": params,
		})
	}
}

// ExportBackup streams the whole store as an xlsx workbook in the
// legacy column order.
func ExportBackup(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("export backup: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		xl, err := creditreq.BuildWorkbook(all)
		if err != nil {
			api.LogError("export backup workbook: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
			return
		}

		name := fmt.Sprintf("credit_backup_%s.xlsx", time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", constants.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
		if err := xl.Write(w); err != nil {
			api.LogError("export backup write: %v", err)
		}
	}
}
