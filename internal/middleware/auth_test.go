package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/middleware"
	"github.com/persistorai/podrestore/internal/security"
)

type mockKeyLookup struct {
	validKeys map[string]string
	calls     atomic.Int32
}

func (m *mockKeyLookup) LookupAPIKey(_ context.Context, apiKey string) (string, error) {
	m.calls.Add(1)
	if name, ok := m.validKeys[apiKey]; ok {
		return name, nil
	}
	return "", errors.New("invalid key")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func serve(r *gin.Engine, header string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	lookup := &mockKeyLookup{validKeys: map[string]string{"good-key": "ops"}}

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{"valid token", "Bearer good-key", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid token", "Bearer bad-key", http.StatusUnauthorized},
		{"no bearer prefix", "good-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.AuthMiddleware(lookup, quietLogger(), nil))
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			if got := serve(r, tt.authHeader); got != tt.wantCode {
				t.Errorf("got %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	lookup := &mockKeyLookup{validKeys: map[string]string{"k1": "migration-bot"}}

	var gotActor string
	r := gin.New()
	r.Use(middleware.AuthMiddleware(lookup, quietLogger(), nil))
	r.GET("/test", func(c *gin.Context) {
		gotActor = c.GetString(middleware.ActorKey)
		c.Status(http.StatusOK)
	})

	serve(r, "Bearer k1")

	if gotActor != "migration-bot" {
		t.Fatalf("expected actor=migration-bot, got %q", gotActor)
	}
}

func TestAuthMiddleware_GuardLocksOutKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lookup := &mockKeyLookup{validKeys: map[string]string{"good-key": "ops"}}
	guard := security.NewFailureGuard(ctx, "api_key", quietLogger())

	r := gin.New()
	r.Use(middleware.AuthMiddleware(lookup, quietLogger(), guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < security.DefaultMaxAttempts; i++ {
		if got := serve(r, "Bearer bad-key"); got != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d, want 401", i, got)
		}
	}

	before := lookup.calls.Load()
	if got := serve(r, "Bearer bad-key"); got != http.StatusTooManyRequests {
		t.Fatalf("locked key: got %d, want 429", got)
	}
	if lookup.calls.Load() != before {
		t.Error("locked key should not reach the lookup")
	}

	if got := serve(r, "Bearer good-key"); got != http.StatusOK {
		t.Errorf("other key: got %d, want 200", got)
	}
}

func TestCachedKeyLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &mockKeyLookup{validKeys: map[string]string{"k1": "ops"}}
	cached := middleware.NewCachedKeyLookup(ctx, inner)

	for i := 0; i < 3; i++ {
		name, err := cached.LookupAPIKey(ctx, "k1")
		if err != nil || name != "ops" {
			t.Fatalf("lookup %d: got (%q, %v)", i, name, err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := cached.LookupAPIKey(ctx, "nope"); err == nil {
			t.Fatal("expected error for unknown key")
		}
	}

	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner lookups = %d, want 2", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"abc123", ""},
		{"", ""},
		{"Bearer ", ""},
		{"bearer abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			got := middleware.ExtractBearerToken(c)
			if got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
