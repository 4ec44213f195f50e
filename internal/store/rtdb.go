package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"CreditProcess/internal/creditreq"
	"CreditProcess/pkg/loadbalancer"
)

const (
	rtdbTimeout      = 15 * time.Second
	rtdbMaxRetries   = 3
	rtdbRetryDelay   = 500 * time.Millisecond
	rtdbMaxFailures  = 5
	rtdbResetTimeout = 30 * time.Second
)

// RTDBStore talks REST to a Firebase-RTDB-compatible JSON tree. Push keys
// are generated client-side so the store never round-trips for an ID.
type RTDBStore struct {
	base    string
	tree    string
	token   string
	client  *http.Client
	ids     *PushIDGenerator
	mirrors *loadbalancer.LoadBalancer

	// breaker state, same shape as the cron jobs use for upstream HTTP
	mu           sync.Mutex
	failures     int
	lastFailTime time.Time
}

func NewRTDBStore(base, tree, token string, mirrors []string) *RTDBStore {
	s := &RTDBStore{
		base:   strings.TrimRight(base, "/"),
		tree:   strings.Trim(tree, "/"),
		token:  token,
		client: &http.Client{Timeout: rtdbTimeout},
		ids:    NewPushIDGenerator(),
	}
	if len(mirrors) > 0 {
		s.mirrors = loadbalancer.NewLoadBalancer(mirrors)
	}
	return s
}

func (s *RTDBStore) treeURL(base string, key string) string {
	path := s.tree
	if key != "" {
		path += "/" + key
	}
	u := base + "/" + path + ".json"
	if s.token != "" {
		u += "?auth=" + url.QueryEscape(s.token)
	}
	return u
}

// readBase rotates across configured mirrors for GETs; writes always hit
// the primary.
func (s *RTDBStore) readBase() string {
	if s.mirrors != nil {
		if m := s.mirrors.Next(); m != "" {
			return strings.TrimRight(m, "/")
		}
	}
	return s.base
}

func (s *RTDBStore) breakerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures < rtdbMaxFailures {
		return false
	}
	if time.Since(s.lastFailTime) > rtdbResetTimeout {
		// Half-open: allow the next attempt through.
		s.failures = rtdbMaxFailures - 1
		return false
	}
	return true
}

func (s *RTDBStore) recordResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		s.lastFailTime = time.Now()
		return
	}
	s.failures = 0
}

// do runs one request with bounded retries and exponential backoff. The
// response body is returned for 2xx; 404 on GET is reported as empty.
func (s *RTDBStore) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	if s.breakerOpen() {
		return nil, fmt.Errorf("rtdb circuit breaker is open")
	}

	var lastErr error
	for attempt := 0; attempt <= rtdbMaxRetries; attempt++ {
		if attempt > 0 {
			delay := rtdbRetryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.recordResult(nil)
			return data, nil
		}
		lastErr = fmt.Errorf("rtdb %s %s: %s", method, resp.Status, strings.TrimSpace(string(data)))
		// Client errors won't heal on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			break
		}
	}
	s.recordResult(lastErr)
	return nil, lastErr
}

func (s *RTDBStore) All(ctx context.Context) (map[string]creditreq.Record, error) {
	data, err := s.do(ctx, http.MethodGet, s.treeURL(s.readBase(), ""), nil)
	if err != nil {
		return nil, err
	}
	records := make(map[string]creditreq.Record)
	if len(data) == 0 || string(data) == "null" {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("rtdb tree decode failed: %w", err)
	}
	return records, nil
}

func (s *RTDBStore) Get(ctx context.Context, key string) (creditreq.Record, error) {
	data, err := s.do(ctx, http.MethodGet, s.treeURL(s.readBase(), key), nil)
	if err != nil {
		return creditreq.Record{}, err
	}
	if len(data) == 0 || string(data) == "null" {
		return creditreq.Record{}, ErrNotFound
	}
	var rec creditreq.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return creditreq.Record{}, fmt.Errorf("rtdb record decode failed: %w", err)
	}
	return rec, nil
}

func (s *RTDBStore) Push(ctx context.Context, rec creditreq.Record) (string, error) {
	key := s.ids.Next()
	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if _, err := s.do(ctx, http.MethodPut, s.treeURL(s.base, key), body); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RTDBStore) Update(ctx context.Context, key string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPatch, s.treeURL(s.base, key), body)
	return err
}

func (s *RTDBStore) Delete(ctx context.Context, key string) error {
	_, err := s.do(ctx, http.MethodDelete, s.treeURL(s.base, key), nil)
	return err
}

func (s *RTDBStore) Pairs(ctx context.Context) (map[creditreq.Pair]struct{}, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make(map[creditreq.Pair]struct{}, len(records))
	for _, rec := range records {
		if p := rec.Pair(); !p.Empty() {
			pairs[p] = struct{}{}
		}
	}
	return pairs, nil
}
