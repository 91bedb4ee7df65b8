// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	c, err := New(url, opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", url, err)
	}
	return c
}

func TestComplete_Success(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat" {
			t.Errorf("Path = %s, want /chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"hi there","sources":["doc1"]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/")
	reply, err := c.Complete(context.Background(), Request{
		Message: "hello",
		UserID:  "abc",
		Model:   "llama3-8b-8192",
		Role:    "teacher",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if reply.Response != "hi there" {
		t.Errorf("Response = %q, want %q", reply.Response, "hi there")
	}
	if len(reply.Sources) != 1 || reply.Sources[0] != "doc1" {
		t.Errorf("Sources = %v", reply.Sources)
	}
	if got.Message != "hello" || got.UserID != "abc" || got.Model != "llama3-8b-8192" || got.Role != "teacher" {
		t.Errorf("request body = %+v", got)
	}
}

func TestComplete_MinimalRequestBody(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	reply, err := newTestClient(t, server.URL).Complete(context.Background(), Request{Message: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 1 || raw["message"] != "hello" {
		t.Errorf("body = %v, want only message", raw)
	}
	if reply.Sources != nil {
		t.Errorf("Sources = %v, want nil", reply.Sources)
	}
}

func TestComplete_MalformedReplies(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"answer":"wrong field"}`,
		`{"response":42}`,
		`{"response":"x","sources":"not-a-list"}`,
	}

	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := newTestClient(t, server.URL).Complete(context.Background(), Request{Message: "hello"})
		server.Close()

		if !errors.Is(err, ErrMalformedReply) {
			t.Errorf("body %s: error = %v, want ErrMalformedReply", body, err)
		}
	}
}

func TestComplete_EmptyResponseIsWellFormed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	}))
	defer server.Close()

	reply, err := newTestClient(t, server.URL).Complete(context.Background(), Request{Message: "hello"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply.Response != "" {
		t.Errorf("Response = %q", reply.Response)
	}
}

func TestComplete_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"fastapi detail", http.StatusInternalServerError, `{"detail":"model unavailable"}`, "model unavailable"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","message"]}]}`, ""},
		{"error field", http.StatusBadGateway, `{"error":"upstream down"}`, "upstream down"},
		{"plain text", http.StatusServiceUnavailable, `down for maintenance`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Complete(context.Background(), Request{Message: "hello"})

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if se.Status != tc.status {
				t.Errorf("Status = %d, want %d", se.Status, tc.status)
			}
			if se.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", se.Message, tc.wantMsg)
			}
		})
	}
}

func TestComplete_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).Complete(context.Background(), Request{Message: "hello"})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrMalformedReply) {
		t.Errorf("network error misclassified: %v", err)
	}
}

func TestComplete_EmptyMessage(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.Complete(context.Background(), Request{Message: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", err)
	}
}

func TestComplete_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"`))
		w.Write([]byte(strings.Repeat("a", MaxResponseSize)))
		w.Write([]byte(`"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), Request{Message: "hello"})
	if !errors.Is(err, ErrMalformedReply) {
		t.Errorf("error = %v, want ErrMalformedReply", err)
	}
}

func TestComplete_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, WithRateLimit(1))
	if _, err := c.Complete(context.Background(), Request{Message: "first"}); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Complete(ctx, Request{Message: "second"}); err == nil {
		t.Error("second request within the minute should wait past the deadline")
	}
}

func TestSetBaseURL(t *testing.T) {
	c := newTestClient(t, "")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want default", c.BaseURL())
	}

	if err := c.SetBaseURL("https://chat.example.com/api/"); err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "https://chat.example.com/api" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}

	for _, bad := range []string{"ftp://x", "localhost:8000", "http://"} {
		if err := c.SetBaseURL(bad); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("SetBaseURL(%q) = %v, want ErrInvalidBaseURL", bad, err)
		}
	}
	if c.BaseURL() != "https://chat.example.com/api" {
		t.Error("invalid URL replaced the previous one")
	}
}
