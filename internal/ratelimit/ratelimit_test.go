package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows within burst", func(t *testing.T) {
		limiter := NewInMemoryRateLimiter(1, 3)
		defer limiter.Stop()

		for i := 0; i < 3; i++ {
			if !limiter.Allow(ctx, "client-a") {
				t.Errorf("request %d within burst was denied", i)
			}
		}
	})

	t.Run("denies after burst exhausted", func(t *testing.T) {
		limiter := NewInMemoryRateLimiter(0.001, 2)
		defer limiter.Stop()

		limiter.Allow(ctx, "client-a")
		limiter.Allow(ctx, "client-a")
		if limiter.Allow(ctx, "client-a") {
			t.Error("expected denial after burst exhausted")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewInMemoryRateLimiter(0.001, 1)
		defer limiter.Stop()

		limiter.Allow(ctx, "client-a")
		if limiter.Allow(ctx, "client-a") {
			t.Error("expected client-a denied")
		}
		if !limiter.Allow(ctx, "client-b") {
			t.Error("expected client-b allowed")
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		limiter := NewInMemoryRateLimiter(100, 1)
		defer limiter.Stop()

		limiter.Allow(ctx, "client-a")
		time.Sleep(50 * time.Millisecond)
		if !limiter.Allow(ctx, "client-a") {
			t.Error("expected token refill after waiting")
		}
	})
}

func TestMiddleware(t *testing.T) {
	limiter := NewInMemoryRateLimiter(0.001, 1)
	defer limiter.Stop()

	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/chat", nil)
	req.RemoteAddr = "203.0.113.7:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request denied: %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on second request, got %d", w.Code)
	}

	// A different client is unaffected
	other := httptest.NewRequest("POST", "/api/v1/chat", nil)
	other.RemoteAddr = "198.51.100.9:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("other client denied: %d", w.Code)
	}
}
