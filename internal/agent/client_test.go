package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateSession_IDField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/apps/agent/users/default/sessions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": "sess-123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	id, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id != "sess-123" {
		t.Errorf("id = %q, want sess-123", id)
	}
}

func TestCreateSession_NameFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "apps/agent/users/default/sessions/sess-456"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	id, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id != "sess-456" {
		t.Errorf("id = %q, want sess-456", id)
	}
}

func TestCreateSession_NoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	if _, err := c.CreateSession(context.Background()); err == nil {
		t.Fatal("expected error for response without id")
	}
}

func TestCreateSession_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	_, err := c.CreateSession(context.Background())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500", se.Code)
	}
}

func TestRun_DecodesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run" {
			t.Errorf("path = %s, want /run", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		if req["session_id"] != "sess-1" {
			t.Errorf("session_id = %v, want sess-1", req["session_id"])
		}
		if req["app_name"] != "agent" {
			t.Errorf("app_name = %v, want agent", req["app_name"])
		}
		w.Write([]byte(`[
			{"content": {"parts": [{"text": "checking "}]}},
			{"content": {"parts": [{"functionCall": {"name": "read_sensor"}}]}},
			{"content": {"parts": [{"text": "done"}]}}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	events, err := c.Run(context.Background(), "sess-1", "monitor now")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if got := Text(events); got != "checking done" {
		t.Errorf("Text = %q, want %q", got, "checking done")
	}
}

func TestRun_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "agent", "default", 0)
	_, err := c.Run(context.Background(), "gone", "hello")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if !se.SessionInvalid() {
		t.Error("SessionInvalid() = false for 404, want true")
	}
}

func TestStatusError_SessionInvalid(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{404, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{429, false},
	}
	for _, tc := range cases {
		se := &StatusError{Code: tc.code}
		if got := se.SessionInvalid(); got != tc.want {
			t.Errorf("SessionInvalid(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestText_NilContent(t *testing.T) {
	events := []Event{
		{},
		{Content: &Content{}},
		{Content: &Content{Parts: []Part{{Text: "ok"}}}},
	}
	if got := Text(events); got != "ok" {
		t.Errorf("Text = %q, want %q", got, "ok")
	}
}
