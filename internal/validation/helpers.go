package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// SessionHeader is the preferred way for clients to pass their session.
const SessionHeader = "X-Session-ID"

// ExtractSessionID pulls the session id off a request, checking the
// header first, then a JSON body field, then a form field. The body is
// read once and restored so downstream handlers can parse it again.
func ExtractSessionID(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	defer r.Body.Close()

	var reqMap map[string]interface{}
	if err := json.Unmarshal(body, &reqMap); err == nil {
		if id, ok := reqMap["session_id"].(string); ok && id != "" {
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			return id, nil
		}
	}

	// Restore body so form parsing can read it
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	ct := r.Header.Get("Content-Type")
	if strings.Contains(strings.ToLower(ct), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			if id := r.FormValue("session_id"); id != "" {
				r.Body = io.NopCloser(bytes.NewBuffer(body))
				return id, nil
			}
		}
	} else {
		if err := r.ParseForm(); err == nil {
			if id := r.FormValue("session_id"); id != "" {
				r.Body = io.NopCloser(bytes.NewBuffer(body))
				return id, nil
			}
		}
	}

	// Ensure body is available for caller
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	return "", fmt.Errorf("session_id not found in request")
}

// ClientIP returns the caller's address, preferring X-Forwarded-For
// since every data service sits behind the gateway proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NormalizeString trims whitespace and converts to lowercase for comparisons
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
