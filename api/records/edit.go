package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

// GetRecord fetches one record by store key.
func GetRecord(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		rec, err := records.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrRecordNotFound)
				return
			}
			api.LogError("get record %s: %v", key, err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"key":     key,
			"record":  rec,
		})
	}
}

var updatableColumns = func() map[string]bool {
	m := make(map[string]bool, len(creditreq.Columns))
	for _, c := range creditreq.Columns {
		m[c] = true
	}
	return m
}()

// unknownField returns the first field name that is not a legacy
// column, or "" when all fields are known.
func unknownField(fields map[string]interface{}) string {
	for name := range fields {
		if !updatableColumns[name] {
			return name
		}
	}
	return ""
}

// normalizeUpdate canonicalizes the identifier fields in a partial
// update so edits cannot introduce un-normalized invoice/item values.
func normalizeUpdate(fields map[string]interface{}) {
	if v, ok := fields["Invoice Number"].(string); ok {
		fields["Invoice Number"] = creditreq.NormalizeInvoice(v)
	}
	if v, ok := fields["Item Number"].(string); ok {
		fields["Item Number"] = creditreq.NormalizeItem(v)
	}
	if v, ok := fields["Ticket Number"].(string); ok {
		fields["Ticket Number"] = creditreq.NormalizeTicket(v)
	}
}

// PatchRecord applies a partial field update. Field names are checked
// against the legacy columns here so every backend refuses unknown
// fields, not just the relational one.
func PatchRecord(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		var fields map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if bad := unknownField(fields); bad != "" {
			api.RespondWithError(w, http.StatusBadRequest,
				constants.FormatError(constants.ErrUnknownField, bad))
			return
		}
		normalizeUpdate(fields)

		if err := records.Update(r.Context(), key, fields); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrRecordNotFound)
				return
			}
			api.LogError("patch record %s: %v", key, err)
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		api.LogInfo("record %s updated (%d fields)", key, len(fields))
		api.RespondWithResult(w, true, "")
	}
}

// DeleteRecord removes one record.
func DeleteRecord(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		if err := records.Delete(r.Context(), key); err != nil {
			api.LogError("delete record %s: %v", key, err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrStoreDeleteFailed)
			return
		}
		api.LogInfo("record %s deleted", key)
		api.RespondWithResult(w, true, "")
	}
}

type statusRequest struct {
	Query string `json:"query"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// statusMatch mirrors the bulk update screen: one input matched against
// ticket, invoice, item, "invoice|item", or status text substring.
func statusMatch(rec creditreq.Record, query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if creditreq.NormalizeTicket(rec.TicketNumber) == q {
		return true
	}
	if creditreq.NormalizeInvoice(rec.InvoiceNumber) == q {
		return true
	}
	if creditreq.NormalizeItem(rec.ItemNumber) == strings.TrimSpace(query) {
		return true
	}
	if parts := strings.SplitN(query, "|", 2); len(parts) == 2 {
		p := creditreq.NewPair(parts[0], parts[1])
		if !p.Empty() && creditreq.NewPair(rec.InvoiceNumber, rec.ItemNumber) == p {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(rec.Status), q)
}

// BulkStatus appends a timestamped status entry to every record the
// query matches. History is only ever appended to.
func BulkStatus(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !creditreq.ValidStatusLabel(req.Label) {
			api.RespondWithError(w, http.StatusBadRequest,
				constants.FormatError(constants.ErrInvalidStatusLabel, req.Label))
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrStatusTextRequired)
			return
		}

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("bulk status load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		entry := creditreq.FormatStatusEntry(time.Now(), req.Label, strings.TrimSpace(req.Text))
		var updated []string
		for key, rec := range all {
			if !statusMatch(rec, req.Query) {
				continue
			}
			newStatus := creditreq.AppendStatus(rec.Status, entry)
			if err := records.Update(r.Context(), key, map[string]interface{}{"Status": newStatus}); err != nil {
				api.LogError("bulk status update %s: %v", key, err)
				continue
			}
			updated = append(updated, key)
		}
		sort.Strings(updated)

		api.LogInfo("bulk status %q applied to %d records", req.Label, len(updated))
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"updated": len(updated),
			"keys":    updated,
			"entry":   entry,
		})
	}
}
