package webhook

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bggsnap/bggsnap/adapter"
)

func testEvent() *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		EventType:  adapter.EventTypeRunCompleted,
		RunID:      "a1b2c3d4e5f60718",
		Trigger:    "push",
		Status:     "test_failure",
		Phase:      "test",
		Message:    "exit status 1",
		DurationMs: 4200,
		Timestamp:  "2026-08-25T03:16:30Z",
	}
}

func TestPublish_Success(t *testing.T) {
	var got adapter.RunCompletedEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got.RunID != "a1b2c3d4e5f60718" || got.Status != "test_failure" || got.Phase != "test" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("authorization = %q", auth)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer tok"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestPublish_RetriesOn5xx(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish should succeed after retries: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestPublish_4xxNotRetried(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	err = a.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("expected error for 422")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected StatusError 422, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", got)
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Retries: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// 1 initial + 2 retries = 3
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := New(Config{URL: "http://localhost", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Config{URL: "http://localhost"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
}
