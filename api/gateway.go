package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"CreditProcess/api/auth"
	"CreditProcess/api/constants"
	"CreditProcess/internal/logger"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/session"
	"CreditProcess/internal/validation"
)

// Global reference to AuthService (set from main or manager)
var (
	authService     *auth.AuthService
	authServiceOnce sync.Once
	gatewayMailer   *notification.Mailer
)

// SetAuthService allows wiring the AuthService from main/manager
func SetAuthService(svc *auth.AuthService) {
	authServiceOnce.Do(func() {
		authService = svc
	})
}

// SetMailer wires the shared mailer so the gateway can report on it.
func SetMailer(m *notification.Mailer) {
	gatewayMailer = m
}

func GetSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if authService == nil {
		RespondWithError(w, http.StatusInternalServerError, "Auth service unavailable")
		return
	}
	RespondWithPayload(w, true, "", authService.ActiveSessions())
}

// RecentAlertsHandler reports the subjects of recently sent alert
// mails, newest last.
func RecentAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if gatewayMailer == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Mailer unavailable")
		return
	}
	RespondWithPayload(w, true, "", gatewayMailer.Recent())
}

// LoginHandler handles POST /auth/login
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if authService == nil {
		RespondWithError(w, http.StatusInternalServerError, "Auth service unavailable")
		return
	}
	clientIP := validation.ClientIP(r)
	s, err := authService.Login(req.Password, clientIP)
	if err != nil {
		switch err {
		case auth.ErrLockedOut:
			RespondWithError(w, http.StatusTooManyRequests, constants.ErrLockedOut)
		case auth.ErrWrongPassword:
			RespondWithError(w, http.StatusUnauthorized, constants.ErrWrongPassword)
		case session.ErrMaxUsers:
			RespondWithError(w, http.StatusServiceUnavailable, constants.ErrMaxUsers)
		default:
			RespondWithError(w, http.StatusUnauthorized, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"session_id": s.ID,
		"expires_at": s.ExpiresAt,
	})
}

// LogoutHandler handles POST /auth/logout
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if authService == nil {
		RespondWithError(w, http.StatusInternalServerError, "Auth service unavailable")
		return
	}
	if err := authService.Logout(req.SessionID); err != nil {
		RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	RespondWithResult(w, true, "")
}

// createReverseProxy returns a reverse proxy handler for the given target URL
func createReverseProxy(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := validation.ClientIP(r)
		logger.Auditf("[Gateway] Incoming request: %s %s from %s", r.Method, r.URL.Path, clientIP)

		url, err := url.Parse(target)
		if err != nil {
			logger.Auditf("[Gateway][ERROR] Proxy error: bad target URL %s for %s", target, r.URL.Path)
			http.Error(w, "Bad target URL", http.StatusInternalServerError)
			return
		}
		proxy := httputil.NewSingleHostReverseProxy(url)

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		proxy.ServeHTTP(rw, r)
		if rw.statusCode >= 400 {
			logger.Auditf("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String())
		} else {
			logger.Auditf("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// newGatewayMux builds the gateway route table.
func newGatewayMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Auth endpoints
	mux.HandleFunc("/auth/login", LoginHandler)
	mux.HandleFunc("/auth/logout", LogoutHandler)
	mux.HandleFunc("/get-sessions", GetSessionsHandler)
	mux.HandleFunc("/recent-alerts", RecentAlertsHandler)
	mux.HandleFunc("/credit/", createReverseProxy("http://localhost:6143"))
	mux.HandleFunc("/records/", createReverseProxy("http://localhost:5143"))
	mux.HandleFunc("/followup/", createReverseProxy("http://localhost:4143"))
	// The bare path carries the create/list endpoints; without it the
	// ServeMux would 301 to the trailing-slash form, which the backend
	// router does not match.
	mux.HandleFunc("/reminders", createReverseProxy("http://localhost:3143"))
	mux.HandleFunc("/reminders/", createReverseProxy("http://localhost:3143"))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Auditf("[Gateway] [Error] %s from %s (route not found)", r.URL.Path, r.RemoteAddr)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})

	return mux
}

// StartGateway starts the API gateway server
func StartGateway() {
	log.Println("API Gateway started on :8081")
	err := http.ListenAndServe(":8081", newGatewayMux())
	if err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
