package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/persistorai/podrestore/internal/api"
	"github.com/persistorai/podrestore/internal/models"
	"github.com/persistorai/podrestore/internal/security"
)

func importBody(username, password, archive string) string {
	return fmt.Sprintf(`{"username":%q,"password":%q,"archive":%s}`, username, password, archive)
}

func newImportRouter(svc api.ImportService, guard *security.FailureGuard) http.Handler {
	h := api.NewImportHandler(svc, guard, testLogger())
	r := newTestRouter()
	r.POST("/accounts/import", h.Import)
	r.POST("/accounts/:username/import", h.Restore)
	r.POST("/archives/validate", h.Validate)

	return r
}

func TestImport_CreatesAccount(t *testing.T) {
	t.Parallel()

	var gotReq models.ImportRequest
	var gotOpts models.ImportOptions
	svc := &mockImporter{
		importNewFn: func(_ context.Context, req models.ImportRequest, opts models.ImportOptions) (*models.ImportResult, error) {
			gotReq, gotOpts = req, opts
			return &models.ImportResult{Username: req.Username, AccountCreated: true, TagsFollowed: 1}, nil
		},
	}

	w := doRequest(newImportRouter(svc, nil), http.MethodPost,
		"/accounts/import?import_settings=false", importBody("new_name", "secret", testArchive))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if gotReq.Username != "new_name" || gotReq.Password != "secret" {
		t.Errorf("unexpected request: %+v", gotReq)
	}

	if gotReq.Archive == nil || gotReq.Archive.AuthorHandle() != "bob@old.example" {
		t.Errorf("archive not decoded: %+v", gotReq.Archive)
	}

	if !gotOpts.ImportProfile || gotOpts.ImportSettings || gotOpts.DryRun {
		t.Errorf("unexpected options: %+v", gotOpts)
	}

	if gotOpts.Actor != testActor {
		t.Errorf("expected actor %q, got %q", testActor, gotOpts.Actor)
	}

	var result models.ImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.TagsFollowed != 1 {
		t.Errorf("expected tags_followed 1, got %d", result.TagsFollowed)
	}
}

func TestImport_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
		field    string
	}{
		{"validation", models.ErrMissingPassword, http.StatusBadRequest, api.ErrCodeValidationError, ""},
		{"too long", models.ErrFieldTooLong("username", models.MaxUsernameLen), http.StatusBadRequest, api.ErrCodeValidationError, ""},
		{"field", &models.FieldError{Field: "email", Err: models.ErrMissingEmail}, http.StatusBadRequest, api.ErrCodeValidationError, "email"},
		{"exists", models.ErrAccountExists, http.StatusConflict, api.ErrCodeConflict, ""},
		{"busy", models.ErrImportInProgress, http.StatusConflict, api.ErrCodeBusy, ""},
		{"storage", fmt.Errorf("following tag: %w", errors.New("connection reset")), http.StatusInternalServerError, api.ErrCodeInternalError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockImporter{
				importNewFn: func(context.Context, models.ImportRequest, models.ImportOptions) (*models.ImportResult, error) {
					return nil, tt.err
				},
			}

			w := doRequest(newImportRouter(svc, nil), http.MethodPost, "/accounts/import", importBody("bob", "pw", testArchive))

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if body["code"] != tt.wantErr {
				t.Errorf("expected code %q, got %q", tt.wantErr, body["code"])
			}

			if body["field"] != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, body["field"])
			}
		})
	}
}

func TestImport_MalformedArchive(t *testing.T) {
	t.Parallel()

	svc := &mockImporter{
		importNewFn: func(context.Context, models.ImportRequest, models.ImportOptions) (*models.ImportResult, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	r := newImportRouter(svc, nil)

	bodies := map[string]string{
		"no user section":  importBody("bob", "pw", `{"version":"2.0"}`),
		"archive is array": importBody("bob", "pw", `[]`),
		"wrong field type": importBody("bob", "pw", `{"user":{"profile":{"entity_data":{"author":7}}}}`),
	}

	for name, body := range bodies {
		w := doRequest(r, http.MethodPost, "/accounts/import", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
		if !strings.Contains(w.Body.String(), api.ErrCodeMalformed) {
			t.Errorf("%s: expected %s code, got %s", name, api.ErrCodeMalformed, w.Body.String())
		}
	}
}

func TestImport_BadRequests(t *testing.T) {
	t.Parallel()

	svc := &mockImporter{}
	r := newImportRouter(svc, nil)

	if w := doRequest(r, http.MethodPost, "/accounts/import", "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("non-JSON body: expected 400, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodPost, "/accounts/import?dry_run=maybe", importBody("bob", "pw", testArchive)); w.Code != http.StatusBadRequest {
		t.Errorf("bad flag: expected 400, got %d", w.Code)
	}
}

func TestImport_GuardLocksOutUsername(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	svc := &mockImporter{
		importNewFn: func(context.Context, models.ImportRequest, models.ImportOptions) (*models.ImportResult, error) {
			calls++
			return nil, models.ErrAccountExists
		},
	}
	r := newImportRouter(svc, security.NewFailureGuard(ctx, "account", testLogger()))

	for i := 0; i < security.DefaultMaxAttempts; i++ {
		if w := doRequest(r, http.MethodPost, "/accounts/import", importBody("bob", "wrong", testArchive)); w.Code != http.StatusConflict {
			t.Fatalf("attempt %d: expected 409, got %d", i, w.Code)
		}
	}

	w := doRequest(r, http.MethodPost, "/accounts/import", importBody("bob", "wrong", testArchive))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	if calls != security.DefaultMaxAttempts {
		t.Errorf("expected %d service calls, got %d", security.DefaultMaxAttempts, calls)
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()

	var gotUser string
	var gotOpts models.ImportOptions
	svc := &mockImporter{
		restoreFn: func(_ context.Context, username string, _ *models.Archive, opts models.ImportOptions) (*models.ImportResult, error) {
			gotUser, gotOpts = username, opts
			if username == "ghost" {
				return nil, models.ErrAccountNotFound
			}
			return &models.ImportResult{Username: username, DryRun: opts.DryRun}, nil
		},
	}
	r := newImportRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/accounts/bob/import?dry_run=true", testArchive)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if gotUser != "bob" || !gotOpts.DryRun || !gotOpts.ImportProfile {
		t.Errorf("unexpected call: user=%q opts=%+v", gotUser, gotOpts)
	}

	if w := doRequest(r, http.MethodPost, "/accounts/ghost/import", testArchive); w.Code != http.StatusNotFound {
		t.Errorf("unknown account: expected 404, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodPost, "/accounts/Bad-Name/import", testArchive); w.Code != http.StatusBadRequest {
		t.Errorf("invalid username: expected 400, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodPost, "/accounts/bob/import", `{"user":{}}`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed archive: expected 400, got %d", w.Code)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	svc := &mockImporter{
		validateFn: func(_ context.Context, archive *models.Archive) *models.ValidationReport {
			return &models.ValidationReport{Valid: true, Author: archive.AuthorHandle(), Stats: archive.Stats()}
		},
	}
	r := newImportRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/archives/validate", testArchive)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var report models.ValidationReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if !report.Valid || report.Author != "bob@old.example" || report.Stats.FollowedTags != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	w = doRequest(r, http.MethodPost, "/archives/validate", `"just a string"`)
	if w.Code != http.StatusOK {
		t.Fatalf("malformed: expected 200, got %d", w.Code)
	}

	report = models.ValidationReport{}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if report.Valid || len(report.Problems) != 1 {
		t.Errorf("expected one problem and valid=false, got %+v", report)
	}
}
