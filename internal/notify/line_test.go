package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*LineClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewLineClient("token", nil)
	c.httpClient = srv.Client()
	return c, srv
}

func TestPushSendsAuthorizedJSON(t *testing.T) {
	var got pushRequest
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer token" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := c.post(context.Background(), srv.URL, pushRequest{
		To:       "U123",
		Messages: []lineMessage{{Type: "text", Text: "予算の80%に達しました"}},
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if got.To != "U123" || len(got.Messages) != 1 || got.Messages[0].Text != "予算の80%に達しました" {
		t.Fatalf("request body = %+v", got)
	}
}

func TestPushRequiresRecipient(t *testing.T) {
	c := NewLineClient("token", nil)
	if err := c.Push(context.Background(), "", "hello"); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("err = %v, want ErrNoRecipient", err)
	}
}

func TestPostRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.post(context.Background(), srv.URL, pushRequest{To: "U1"}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.post(context.Background(), srv.URL, pushRequest{To: "U1"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}
