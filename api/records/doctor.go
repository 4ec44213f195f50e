package records

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/store"
)

// groupKey is the duplicate-doctor composite identity: rows that agree
// on all five fields are the same logical request entered twice.
func groupKey(rec creditreq.Record) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		creditreq.NormalizeTicket(rec.TicketNumber),
		creditreq.NormalizeInvoice(rec.InvoiceNumber),
		creditreq.NormalizeItem(rec.ItemNumber),
		creditreq.AsString(rec.Quantity),
		rec.CreditRequestTotal.StringFixed(2))
}

type dupGroup struct {
	Group string      `json:"group"`
	Keys  []string    `json:"keys"`
	Rows  []searchRow `json:"rows"`
}

func buildGroups(all map[string]creditreq.Record) map[string]*dupGroup {
	groups := make(map[string]*dupGroup)
	for key, rec := range all {
		gk := groupKey(rec)
		g, ok := groups[gk]
		if !ok {
			g = &dupGroup{Group: gk}
			groups[gk] = g
		}
		g.Keys = append(g.Keys, key)
		g.Rows = append(g.Rows, searchRow{Key: key, Record: rec})
	}
	return groups
}

// DoctorScan reports every group of records sharing the composite
// identity, groups of one excluded.
func DoctorScan(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("doctor scan load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		var dupes []dupGroup
		for _, g := range buildGroups(all) {
			if len(g.Keys) < 2 {
				continue
			}
			sort.Strings(g.Keys)
			sort.Slice(g.Rows, func(i, j int) bool { return g.Rows[i].Key < g.Rows[j].Key })
			dupes = append(dupes, *g)
		}
		sort.Slice(dupes, func(i, j int) bool { return dupes[i].Group < dupes[j].Group })

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"groups":  dupes,
			"count":   len(dupes),
		})
	}
}

// DoctorPurge deletes the selected duplicate keys. Deleting every
// member of a group is refused; one survivor always stays.
func DoctorPurge(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keys []string `json:"keys"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Keys) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("doctor purge load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		selected := make(map[string]struct{}, len(req.Keys))
		for _, k := range req.Keys {
			if _, ok := all[k]; !ok {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrRecordNotFound)
				return
			}
			selected[k] = struct{}{}
		}

		// A group must keep at least one member.
		for _, g := range buildGroups(all) {
			doomed := 0
			for _, k := range g.Keys {
				if _, hit := selected[k]; hit {
					doomed++
				}
			}
			if doomed > 0 && doomed == len(g.Keys) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrCannotDeleteAllPairs)
				return
			}
		}

		deleted := 0
		for k := range selected {
			if err := records.Delete(r.Context(), k); err != nil {
				api.LogError("doctor purge delete %s: %v", k, err)
				continue
			}
			deleted++
		}

		api.LogInfo("doctor purge removed %d duplicates", deleted)
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"deleted": deleted,
		})
	}
}
