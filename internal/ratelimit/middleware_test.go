package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
)

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"IPv4 with port", "192.168.1.100:12345", "192.168.1.100"},
		{"IPv6 with port", "[2001:db8::1]:8080", "2001:db8::1"},
		{"bare IP from RealIP", "203.0.113.45", "203.0.113.45"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := ClientKey(req); got != tt.want {
				t.Errorf("ClientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_BlocksAfterBurst(t *testing.T) {
	clock := quartz.NewMock(t)
	limiter := NewInMemoryRateLimiter(1, 2, WithClock(clock))
	defer limiter.Stop()

	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1:1001"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("other clients should not be limited, got %d", code)
	}

	clock.Advance(time.Second)
	if code := send("10.0.0.1:1002"); code != http.StatusOK {
		t.Fatalf("expected refill after one second, got %d", code)
	}
}

func TestCleanupOldLimiters(t *testing.T) {
	clock := quartz.NewMock(t)
	limiter := NewInMemoryRateLimiter(10, 10, WithClock(clock))
	defer limiter.Stop()

	limiter.maxAge = time.Minute

	ctx := context.Background()
	limiter.Allow(ctx, "old")
	clock.Advance(30 * time.Second)
	limiter.Allow(ctx, "fresh")
	clock.Advance(31 * time.Second)

	if removed := limiter.cleanupOldLimiters(); removed != 1 {
		t.Errorf("expected 1 limiter removed, got %d", removed)
	}
	if size := limiter.Size(); size != 1 {
		t.Errorf("expected 1 limiter left, got %d", size)
	}
}
