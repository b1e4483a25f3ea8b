package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestSweepRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sweep": `{"reminders_sent":4}`,
	})

	resp, err := ts.client().post(ctx, "/sweep", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]int
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["reminders_sent"] != 4 {
		t.Errorf("reminders_sent = %d, want 4", result["reminders_sent"])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/sweep" {
		t.Errorf("request = %s %s, want POST /sweep", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
}

func TestUsersRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /users": `[{"id":"u1","language":"en","state":"free_form","child_birth_date":"2024-01-10","history_length":2}]`,
	})

	resp, err := ts.client().get(ctx, "/users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var users []struct {
		ID             string `json:"id"`
		ChildBirthDate string `json:"child_birth_date"`
	}
	if err := decodeJSON(resp, &users); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" || users[0].ChildBirthDate != "2024-01-10" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestDecodeJSONErrorResponse(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry status code: %v", err)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if path != filepath.Join(dir, "botina.pid") {
		t.Errorf("unexpected pid path: %s", path)
	}

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removal")
	}
}
