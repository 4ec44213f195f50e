package records

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

func seedStore(t *testing.T, recs ...creditreq.Record) (*store.MemStore, []string) {
	t.Helper()
	m := store.NewMemStore()
	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		key, err := m.Push(context.Background(), rec)
		require.NoError(t, err)
		keys = append(keys, key)
	}
	return m, keys
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestSearchByTicket(t *testing.T) {
	m, _ := seedStore(t,
		creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"},
		creditreq.Record{TicketNumber: "T-2", InvoiceNumber: "INV-02", ItemNumber: "200"},
		// Ticket only mentioned inside the status notes.
		creditreq.Record{TicketNumber: "", Status: "moved under T-1 last week", InvoiceNumber: "INV-03", ItemNumber: "300"},
	)

	rr := postJSON(t, Search(m), "/records/search", `{"mode":"ticket","query":"t-1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Rows  []searchRow `json:"rows"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestSearchByPair(t *testing.T) {
	m, keys := seedStore(t,
		creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"},
		creditreq.Record{TicketNumber: "T-2", InvoiceNumber: "INV-01", ItemNumber: "200"},
	)

	rr := postJSON(t, Search(m), "/records/search", `{"mode":"pair","invoice":"inv-01","item":"100.0"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Rows []searchRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, keys[0], resp.Rows[0].Key)
}

func TestSearchUnknownMode(t *testing.T) {
	m, _ := seedStore(t)
	rr := postJSON(t, Search(m), "/records/search", `{"mode":"wat","query":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchBatchUpload(t *testing.T) {
	m, _ := seedStore(t,
		creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"},
		creditreq.Record{TicketNumber: "T-2", InvoiceNumber: "INV-02", ItemNumber: "200"},
	)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "pairs.csv")
	require.NoError(t, err)
	part.Write([]byte("Invoice Number,Item Number\nINV-01,100\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/records/search", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	Search(m)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestSearchCSVExport(t *testing.T) {
	m, _ := seedStore(t,
		creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"},
	)

	req := httptest.NewRequest(http.MethodPost, "/records/search?format=csv",
		strings.NewReader(`{"mode":"ticket","query":"T-1"}`))
	rr := httptest.NewRecorder()
	Search(m)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Body.String(), "INV-01")
}

func muxRequest(handler http.HandlerFunc, method, path string, vars map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = mux.SetURLVars(req, vars)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestGetRecord(t *testing.T) {
	m, keys := seedStore(t, creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"})

	rr := muxRequest(GetRecord(m), http.MethodGet, "/records/"+keys[0], map[string]string{"key": keys[0]}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = muxRequest(GetRecord(m), http.MethodGet, "/records/none", map[string]string{"key": "none"}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatchRecordNormalizesIdentifiers(t *testing.T) {
	m, keys := seedStore(t, creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"})

	rr := muxRequest(PatchRecord(m), http.MethodPatch, "/records/"+keys[0],
		map[string]string{"key": keys[0]},
		`{"Invoice Number":" inv-99 ","Item Number":"300.0"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rec, err := m.Get(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, "INV-99", rec.InvoiceNumber)
	assert.Equal(t, "300", rec.ItemNumber)
}

func TestPatchRecordRejectsUnknownField(t *testing.T) {
	m, keys := seedStore(t, creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100"})

	rr := muxRequest(PatchRecord(m), http.MethodPatch, "/records/"+keys[0],
		map[string]string{"key": keys[0]}, `{"Bogus Field":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Bogus Field")

	// The record is untouched.
	rec, err := m.Get(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, "INV-01", rec.InvoiceNumber)
}

func TestPatchRecordRejectsEmptyBody(t *testing.T) {
	m, keys := seedStore(t, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	rr := muxRequest(PatchRecord(m), http.MethodPatch, "/records/"+keys[0],
		map[string]string{"key": keys[0]}, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBulkStatusAppendsHistory(t *testing.T) {
	m, keys := seedStore(t,
		creditreq.Record{TicketNumber: "T-1", InvoiceNumber: "INV-01", ItemNumber: "100", Status: "[2026-01-01 08:00:00] Update: opened"},
		creditreq.Record{TicketNumber: "T-2", InvoiceNumber: "INV-02", ItemNumber: "200"},
	)

	rr := postJSON(t, BulkStatus(m), "/records/status",
		`{"query":"T-1","label":"In Process","text":"waiting on billing"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Updated int      `json:"updated"`
		Keys    []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, []string{keys[0]}, resp.Keys)

	rec, err := m.Get(context.Background(), keys[0])
	require.NoError(t, err)
	lines := strings.Split(rec.Status, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-01-01 08:00:00] Update: opened", lines[0])
	assert.Contains(t, lines[1], "In Process: waiting on billing")
}

func TestBulkStatusRejectsBadLabel(t *testing.T) {
	m, _ := seedStore(t)
	rr := postJSON(t, BulkStatus(m), "/records/status", `{"query":"T-1","label":"Nope","text":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postJSON(t, BulkStatus(m), "/records/status", `{"query":"T-1","label":"Update","text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCRSync(t *testing.T) {
	m, keys := seedStore(t,
		creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"},
		creditreq.Record{InvoiceNumber: "INV-02", ItemNumber: "200", RTNCRNumber: "CR-OLD"},
		creditreq.Record{InvoiceNumber: "INV-03", ItemNumber: "300"},
	)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "billing.csv")
	require.NoError(t, err)
	part.Write([]byte("Doc No,Item No.,RTN/CR No.\n" +
		"INV-01,100,CR-100\n" +
		"INV-02,200,CR-200\n" +
		"INV-03,300,\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/records/crsync", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	CRSync(m)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Updated    int `json:"updated"`
		AlreadySet int `json:"already_set"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, 1, resp.AlreadySet)

	rec, err := m.Get(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, "CR-100", rec.RTNCRNumber)

	// Existing CR numbers are never overwritten.
	rec, err = m.Get(context.Background(), keys[1])
	require.NoError(t, err)
	assert.Equal(t, "CR-OLD", rec.RTNCRNumber)

	// Billing rows without a CR change nothing.
	rec, err = m.Get(context.Background(), keys[2])
	require.NoError(t, err)
	assert.Equal(t, "", rec.RTNCRNumber)
}

func dupRecord(requestedBy string) creditreq.Record {
	return creditreq.Record{
		TicketNumber:       "T-1",
		InvoiceNumber:      "INV-01",
		ItemNumber:         "100",
		Quantity:           2,
		CreditRequestTotal: decimal.RequireFromString("20.00"),
		IssueType:          "Tax",
		RequestedBy:        requestedBy,
	}
}

func TestDoctorScanFindsGroups(t *testing.T) {
	m, _ := seedStore(t,
		dupRecord("first"),
		dupRecord("second"),
		creditreq.Record{TicketNumber: "T-2", InvoiceNumber: "INV-09", ItemNumber: "900"},
	)

	req := httptest.NewRequest(http.MethodPost, "/records/doctor/scan", nil)
	rr := httptest.NewRecorder()
	DoctorScan(m)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Groups []dupGroup `json:"groups"`
		Count  int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Len(t, resp.Groups[0].Keys, 2)
}

func TestDoctorPurgeKeepsOneSurvivor(t *testing.T) {
	m, keys := seedStore(t, dupRecord("first"), dupRecord("second"))

	// Deleting every member of the group is refused.
	body, _ := json.Marshal(map[string][]string{"keys": keys})
	rr := postJSON(t, DoctorPurge(m), "/records/doctor/purge", string(body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Deleting all but one works.
	body, _ = json.Marshal(map[string][]string{"keys": keys[:1]})
	rr = postJSON(t, DoctorPurge(m), "/records/doctor/purge", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	all, err := m.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDoctorPurgeUnknownKey(t *testing.T) {
	m, _ := seedStore(t, dupRecord("first"))
	rr := postJSON(t, DoctorPurge(m), "/records/doctor/purge", `{"keys":["missing"]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
