package reminders

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/config"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/reminders"
)

func StartRemindersService(store *reminders.Store) {
	router := mux.NewRouter()
	router.Use(api.SessionMiddleware)

	router.HandleFunc("/reminders/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Reminders Service is active"))
	}).Methods("GET")

	router.Handle("/reminders", Create(store)).Methods("POST")
	router.Handle("/reminders", List(store)).Methods("GET")
	router.Handle("/reminders/prune", Prune(store)).Methods("POST")
	router.Handle("/reminders/{id:[0-9]+}/done", MarkDone(store)).Methods("POST")
	router.Handle("/reminders/{id:[0-9]+}/snooze", Snooze(store)).Methods("POST")
	router.Handle("/reminders/{id:[0-9]+}", Delete(store)).Methods("DELETE")

	log.Println("Reminders Service started on :3143")
	err := http.ListenAndServe(":3143", router)
	if err != nil {
		log.Fatalf("Reminders Service failed: %v", err)
	}
}

func reminderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func respondStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reminders.ErrNotFound):
		api.RespondWithError(w, http.StatusNotFound, constants.ErrReminderNotFound)
	case errors.Is(err, reminders.ErrRecentDuplicate):
		api.RespondWithError(w, http.StatusConflict, constants.ErrReminderDuplicate)
	case errors.Is(err, reminders.ErrTooFarOut):
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrReminderTooFarOut)
	default:
		api.LogError("reminder store: %v", err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
	}
}

type createRequest struct {
	Ticket string `json:"ticket"`
	Note   string `json:"note"`
	Hours  int    `json:"hours"`
	DueAt  string `json:"due_at"` // optional explicit time, RFC3339
}

// Create adds a reminder for a ticket, due in `hours` (presets 4/24/48
// or custom 1..336) or at an explicit due_at.
func Create(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		req.Ticket = creditreq.NormalizeTicket(req.Ticket)
		if req.Ticket == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrTicketRequired)
			return
		}

		var (
			rem *reminders.Reminder
			err error
		)
		if strings.TrimSpace(req.DueAt) != "" {
			due, perr := time.Parse(time.RFC3339, req.DueAt)
			if perr != nil {
				api.RespondWithError(w, http.StatusBadRequest, "invalid due_at, expected RFC3339")
				return
			}
			rem, err = store.Add(r.Context(), req.Ticket, req.Note, due)
		} else {
			if req.Hours < 0 || req.Hours > config.ReminderMaxHours {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrReminderTooFarOut)
				return
			}
			rem, err = store.AddPreset(r.Context(), req.Ticket, req.Note, req.Hours)
		}
		if err != nil {
			respondStoreErr(w, err)
			return
		}

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"reminder": rem,
		})
	}
}

// List returns reminders; ?state=open hides done ones, ?state=done
// shows only the completed tail.
func List(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		all, err := store.List(r.Context(), state == "open")
		if err != nil {
			respondStoreErr(w, err)
			return
		}
		if state == "done" {
			done := make([]reminders.Reminder, 0, len(all))
			for _, rem := range all {
				if rem.Done {
					done = append(done, rem)
				}
				if len(done) >= config.ReminderKeepDone {
					break
				}
			}
			all = done
		}
		api.RespondWithPayload(w, true, "", all)
	}
}

// MarkDone completes a reminder.
func MarkDone(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reminderID(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequest)
			return
		}
		if err := store.MarkDone(r.Context(), id); err != nil {
			respondStoreErr(w, err)
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

// Snooze pushes a pending reminder out by `hours`.
func Snooze(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reminderID(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequest)
			return
		}
		var req struct {
			Hours int `json:"hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		rem, err := store.Snooze(r.Context(), id, req.Hours)
		if err != nil {
			respondStoreErr(w, err)
			return
		}
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"reminder": rem,
		})
	}
}

// Delete removes a reminder outright.
func Delete(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reminderID(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequest)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			respondStoreErr(w, err)
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

// Prune trims done reminders beyond the newest fifty.
func Prune(store *reminders.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := store.Prune(r.Context(), config.ReminderKeepDone)
		if err != nil {
			respondStoreErr(w, err)
			return
		}
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"removed": removed,
		})
	}
}
