package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/persistorai/podrestore/internal/api"
	"github.com/persistorai/podrestore/internal/models"
	"github.com/persistorai/podrestore/internal/ws"
)

func newFullRouter(t *testing.T, maxArchive int64) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := &mockImporter{
		validateFn: func(_ context.Context, archive *models.Archive) *models.ValidationReport {
			return &models.ValidationReport{Valid: true, Author: archive.AuthorHandle()}
		},
	}

	return api.NewRouter(ctx, &api.RouterDeps{
		Log:             testLogger(),
		Hub:             ws.NewHub(testLogger()),
		Importer:        svc,
		Accounts:        &mockAccounts{},
		Audit:           &mockAuditRepo{},
		KeyLookup:       &mockKeyLookup{keys: map[string]string{"good-key": testActor}},
		CORSOrigins:     []string{"http://localhost:3002"},
		Version:         "test",
		MaxArchiveBytes: maxArchive,
	})
}

func authed(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer good-key")
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestRouter_HealthIsPublic(t *testing.T) {
	t.Parallel()

	r := newFullRouter(t, 1<<20)

	w := doRequest(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	r := newFullRouter(t, 1<<20)

	if w := doRequest(r, http.MethodPost, "/api/v1/archives/validate", testArchive); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(http.MethodPost, "/api/v1/archives/validate", testArchive))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_RejectsOversizedArchive(t *testing.T) {
	t.Parallel()

	r := newFullRouter(t, 1024)

	pad := strings.Repeat("x", 128<<10)
	body := `{"user":{"profile":{"entity_data":{"author":"bob@old.example","bio":"` + pad + `"}}}}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(http.MethodPost, "/api/v1/archives/validate", body))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestRouter_RejectsOversizedStreamedImport(t *testing.T) {
	t.Parallel()

	r := newFullRouter(t, 1024)

	pad := strings.Repeat("x", 256<<10)
	req := authed(http.MethodPost, "/api/v1/accounts/import", importBody("bob", "pw", `{"user":{"bio":"`+pad+`"}}`))
	req.ContentLength = -1

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}
