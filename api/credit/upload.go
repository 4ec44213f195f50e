package credit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/checksum"
	"CreditProcess/internal/config"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

const maxUploadBytes = 32 << 20

// uploadedFile reads the multipart "file" part into memory.
func uploadedFile(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("file field missing: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("uploaded file is empty")
	}
	return data, header.Filename, nil
}

type previewRow struct {
	creditreq.Record
	AlreadyExists bool `json:"already_exists"`
}

// TemplatePreview parses an uploaded template, cleans it, and reports
// which rows would be skipped as duplicates without writing anything.
func TemplatePreview(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		data, filename, err := uploadedFile(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		raw, err := creditreq.ParseWorkbook(data, filename)
		if err != nil {
			api.LogError("template preview: %v", err)
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParsingFailed)
			return
		}
		rows, issues, err := creditreq.CleanRows(raw)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		pairs, err := records.Pairs(r.Context())
		if err != nil {
			api.LogError("template preview pairs: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		preview := make([]previewRow, 0, len(rows))
		existing := 0
		for _, rec := range rows {
			p := rec.Pair()
			_, dup := pairs[p]
			dup = dup && !p.Empty()
			if dup {
				existing++
			}
			preview = append(preview, previewRow{Record: rec, AlreadyExists: dup})
		}

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":         true,
			"filename":        filename,
			"rows":            preview,
			"issues":          issues,
			"duplicate_count": existing,
		})
	}
}

// submitResult is the outcome of one submit batch.
type submitResult struct {
	Submitted int      `json:"submitted"`
	Skipped   int      `json:"skipped_duplicates"`
	Failed    int      `json:"failed"`
	Details   []string `json:"details,omitempty"`
}

// submitRows runs the idempotent merge: rows whose (invoice, item) pair
// already exists are skipped, tax rows are exempt, and a pair inserted
// earlier in the batch counts as existing for later rows. Large batches
// go through the staging fast path when one is wired.
func submitRows(ctx context.Context, deps Deps, meta creditreq.TicketMeta, rows []creditreq.Record) (submitResult, error) {
	var res submitResult

	pairs, err := deps.Records.Pairs(ctx)
	if err != nil {
		return res, fmt.Errorf("load existing pairs: %w", err)
	}

	now := time.Now()
	type stagedRow struct {
		rec creditreq.Record
		row int
	}
	var toInsert []stagedRow
	for i := range rows {
		rec := rows[i]
		meta.Apply(&rec, now, i)
		p := rec.Pair()
		if !p.Empty() {
			if _, dup := pairs[p]; dup {
				res.Skipped++
				res.Details = append(res.Details, fmt.Sprintf("row %d: skipped duplicate pair %s", i+1, p))
				continue
			}
			pairs[p] = struct{}{}
		}
		toInsert = append(toInsert, stagedRow{rec: rec, row: i + 1})
	}

	if deps.Stager != nil && len(toInsert) >= config.BulkStageThreshold {
		ids := store.NewPushIDGenerator()
		batch := make(map[string]creditreq.Record, len(toInsert))
		for _, s := range toInsert {
			batch[ids.Next()] = s.rec
		}
		inserted, err := deps.Stager.StageAndMerge(ctx, batch)
		if err != nil {
			return res, fmt.Errorf("staged merge: %w", err)
		}
		res.Submitted = inserted
		res.Skipped += len(toInsert) - inserted
		return res, nil
	}

	for _, s := range toInsert {
		if _, err := deps.Records.Push(ctx, s.rec); err != nil {
			if errors.Is(err, store.ErrDuplicatePair) {
				res.Skipped++
				res.Details = append(res.Details, fmt.Sprintf("row %d: skipped duplicate pair %s", s.row, s.rec.Pair()))
				continue
			}
			res.Failed++
			res.Details = append(res.Details, fmt.Sprintf("row %d: insert failed: %v", s.row, err))
			continue
		}
		res.Submitted++
	}
	return res, nil
}

func metaFromForm(r *http.Request) creditreq.TicketMeta {
	return creditreq.TicketMeta{
		TicketNumber: r.FormValue("ticket_number"),
		TicketDate:   r.FormValue("ticket_date"),
		StatusNote:   r.FormValue("status"),
		SalesRep:     r.FormValue("sales_rep"),
		CreditType:   r.FormValue("credit_type"),
	}
}

// SubmitBatch accepts either a multipart template upload plus ticket
// form fields, or a JSON body with rows and metadata. Every accepted
// submit is recorded in the upload log.
func SubmitBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}

		var (
			meta     creditreq.TicketMeta
			rows     []creditreq.Record
			filename string
			fileHash string
			previous *store.UploadEntry
		)

		ct := r.Header.Get(constants.HeaderContent)
		if strings.Contains(strings.ToLower(ct), "multipart/form-data") {
			data, name, err := uploadedFile(r)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
				return
			}
			raw, err := creditreq.ParseWorkbook(data, name)
			if err != nil {
				api.LogError("submit parse: %v", err)
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParsingFailed)
				return
			}
			rows, _, err = creditreq.CleanRows(raw)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			meta = metaFromForm(r)
			filename = name
			fileHash = checksum.Sum(data)
			if deps.Uploads != nil {
				previous, _ = deps.Uploads.SeenHash(r.Context(), fileHash)
			}
		} else {
			var req struct {
				Ticket creditreq.TicketMeta `json:"ticket"`
				Rows   []creditreq.Record   `json:"rows"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
			meta = req.Ticket
			rows = req.Rows
			filename = "manual-entry"
		}

		if err := meta.Validate(); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(rows) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoRecordsInFile)
			return
		}

		res, err := submitRows(r.Context(), deps, meta, rows)
		if err != nil {
			api.LogError("submit: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrStoreWriteFailed)
			return
		}

		if deps.Uploads != nil {
			if _, err := deps.Uploads.Record(r.Context(), filename, res.Submitted, res.Skipped, fileHash); err != nil {
				api.LogError("upload log write: %v", err)
			}
		}

		api.LogInfo("submit %s: %d inserted, %d skipped, %d failed", filename, res.Submitted, res.Skipped, res.Failed)
		resp := map[string]interface{}{
			"success":            res.Failed == 0,
			"submitted":          res.Submitted,
			"skipped_duplicates": res.Skipped,
			"failed":             res.Failed,
			"details":            res.Details,
		}
		if previous != nil {
			resp["previous_upload"] = previous
		}
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(resp)
	}
}

// SubmitOne inserts a single manually entered row under the same
// duplicate rule as a batch.
func SubmitOne(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		var req struct {
			Ticket creditreq.TicketMeta `json:"ticket"`
			Row    creditreq.Record     `json:"row"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if err := req.Ticket.Validate(); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		rec := req.Row
		req.Ticket.Apply(&rec, time.Now(), 0)
		p := rec.Pair()
		if !p.Empty() {
			pairs, err := deps.Records.Pairs(r.Context())
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
				return
			}
			if _, dup := pairs[p]; dup {
				api.RespondWithError(w, http.StatusConflict, constants.ErrDuplicatePair)
				return
			}
		}

		key, err := deps.Records.Push(r.Context(), rec)
		if err != nil {
			if errors.Is(err, store.ErrDuplicatePair) {
				api.RespondWithError(w, http.StatusConflict, constants.ErrDuplicatePair)
				return
			}
			api.LogError("submit one: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrStoreWriteFailed)
			return
		}

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"key":       key,
			"record_id": rec.RecordID,
		})
	}
}
