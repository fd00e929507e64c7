// Package testutil provides testing utilities for the group roster client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one scripted response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration

	// Hijack closes the connection without answering, simulating a dropped link.
	Hijack bool
}

// MockGroups is a scripted groups API. Responses are served in order; once the
// script is exhausted the last response is repeated.
type MockGroups struct {
	server *httptest.Server
	mu     sync.RWMutex
	script []MockResponse

	// Tracking
	requestCount  int
	cursors       []string
	lastQuery     map[string]string
	lastPath      string
	lastUserAgent string
}

// NewMockGroups creates a new mock groups API serving the given script.
func NewMockGroups(script ...MockResponse) *MockGroups {
	mock := &MockGroups{script: script}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		idx := mock.requestCount
		mock.requestCount++
		mock.cursors = append(mock.cursors, r.URL.Query().Get("cursor"))
		mock.lastPath = r.URL.Path
		mock.lastUserAgent = r.Header.Get("User-Agent")
		mock.lastQuery = map[string]string{}
		for key := range r.URL.Query() {
			mock.lastQuery[key] = r.URL.Query().Get(key)
		}

		var resp MockResponse
		switch {
		case len(mock.script) == 0:
			resp = NewPageResponse(nil, "")
		case idx < len(mock.script):
			resp = mock.script[idx]
		default:
			resp = mock.script[len(mock.script)-1]
		}
		mock.mu.Unlock()

		serve(w, resp)
	}))

	return mock
}

func serve(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if resp.Hijack {
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
				return
			}
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server URL.
func (m *MockGroups) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGroups) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and restarts the script.
func (m *MockGroups) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.cursors = nil
	m.lastQuery = nil
	m.lastPath = ""
	m.lastUserAgent = ""
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGroups) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetCursors returns the cursor parameter of every request, in order ("" when absent).
func (m *MockGroups) GetCursors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.cursors...)
}

// GetLastPath returns the URL path of the most recent request.
func (m *MockGroups) GetLastPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPath
}

// GetLastUserAgent returns the User-Agent header of the most recent request.
func (m *MockGroups) GetLastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// Query returns a query parameter of the most recent request.
func (m *MockGroups) Query(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery[key]
}

// PageBody renders a members page with the given user ids and next cursor ("" for null).
func PageBody(ids []int64, cursor string) string {
	type user struct {
		UserID      int64  `json:"userId"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	type item struct {
		User user `json:"user"`
	}
	page := struct {
		Data           []item  `json:"data"`
		NextPageCursor *string `json:"nextPageCursor"`
	}{Data: []item{}}

	for _, id := range ids {
		page.Data = append(page.Data, item{User: user{
			UserID:      id,
			Username:    fmt.Sprintf("user%d", id),
			DisplayName: fmt.Sprintf("User %d", id),
		}})
	}
	if cursor != "" {
		page.NextPageCursor = &cursor
	}

	data, _ := json.Marshal(page)
	return string(data)
}

// NewPageResponse creates a 200 OK members page.
func NewPageResponse(ids []int64, cursor string) MockResponse {
	return NewRawPageResponse(PageBody(ids, cursor))
}

// NewRawPageResponse creates a 200 OK response with a hand-written body.
func NewRawPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates a 403 response for a private group.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"errors":[{"code":0,"message":"Forbidden"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	headers := map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
	if retryAfter != "" {
		headers["Retry-After"] = retryAfter
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"code":0,"message":"Too many requests"}]}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 response with the given body.
func NewServerErrorResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// NewDroppedConnection creates a response that closes the connection mid-request.
func NewDroppedConnection() MockResponse {
	return MockResponse{Hijack: true}
}

// LongBody returns a body of n repetitions of s, handy for excerpt tests.
func LongBody(s string, n int) string {
	return strings.Repeat(s, n)
}
