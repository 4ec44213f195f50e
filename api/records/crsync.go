package records

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

// Billing export headers. The billing system names its columns
// differently from the credit template.
const (
	billingDocCol  = "Doc No"
	billingItemCol = "Item No."
	billingCRCol   = "RTN/CR No."
)

// CRSync fills RTN_CR_No on records that are missing one, matched by
// (invoice, item) pair against an uploaded billing-master workbook.
// Billing rows without a CR number and records that already carry one
// are left alone.
func CRSync(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if len(raw) < 2 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
			return
		}
		idx := creditreq.HeaderIndex(raw[0])
		docCol, okDoc := idx[billingDocCol]
		itemCol, okItem := idx[billingItemCol]
		crCol, okCR := idx[billingCRCol]
		if !okDoc || !okItem || !okCR {
			api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(
				constants.ErrMissingColumns, billingDocCol+", "+billingItemCol+", "+billingCRCol))
			return
		}

		// Pair → CR number from billing; first non-empty wins.
		crByPair := make(map[creditreq.Pair]string)
		for _, row := range raw[1:] {
			if docCol >= len(row) || itemCol >= len(row) || crCol >= len(row) {
				continue
			}
			cr := strings.TrimSpace(row[crCol])
			if cr == "" {
				continue
			}
			p := creditreq.NewPair(row[docCol], row[itemCol])
			if p.Empty() {
				continue
			}
			if _, seen := crByPair[p]; !seen {
				crByPair[p] = cr
			}
		}

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("crsync load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		updated, skipped := 0, 0
		for key, rec := range all {
			cr, hit := crByPair[creditreq.NewPair(rec.InvoiceNumber, rec.ItemNumber)]
			if !hit {
				continue
			}
			if rec.HasCR() {
				skipped++
				continue
			}
			if err := records.Update(r.Context(), key, map[string]interface{}{"RTN_CR_No": cr}); err != nil {
				api.LogError("crsync update %s: %v", key, err)
				continue
			}
			updated++
		}

		api.LogInfo("crsync %s: %d updated, %d already had CR", header.Filename, updated, skipped)
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"updated":      updated,
			"already_set":  skipped,
			"billing_rows": len(crByPair),
		})
	}
}
