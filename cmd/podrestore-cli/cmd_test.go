package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const testArchive = `{"user":{"username":"bob","email":"bob@old.example","profile":{"entity_data":{"author":"bob@old.example"}},"followed_tags":["testtag"]}}`

// run executes the CLI against srv with a clean HOME and returns stdout.
func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	unsetEnv(t, "PODRESTORE_URL")
	unsetEnv(t, "PODRESTORE_API_KEY")
	setEnv(t, "HOME", t.TempDir())

	root := newRootCmd()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	root.SetArgs(append([]string{"--url", srv.URL, "--api-key", "test-key"}, args...))

	var err error
	out := captureStdout(t, func() { err = root.Execute() })
	return out, err
}

func writeArchive(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCmd(t *testing.T) {
	unsetEnv(t, "PODRESTORE_PASSWORD")

	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/accounts/import" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"run_id":"r-1","username":"bob","account_created":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := run(t, srv, "import", writeArchive(t, testArchive), "--password", "pw")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if auth != "Bearer test-key" {
		t.Errorf("got auth %q", auth)
	}
	if got["username"] != "bob" || got["password"] != "pw" {
		t.Errorf("username should default to the archive's; got %v", got)
	}
	if !strings.Contains(out, `"run_id": "r-1"`) {
		t.Errorf("expected result JSON on stdout, got %s", out)
	}
}

func TestImportCmd_LocalChecks(t *testing.T) {
	unsetEnv(t, "PODRESTORE_PASSWORD")

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := run(t, srv, "import", writeArchive(t, testArchive)); err == nil {
		t.Error("expected error without a password")
	}

	if _, err := run(t, srv, "import", writeArchive(t, `{"user":{}}`), "--password", "pw"); err == nil {
		t.Error("expected error for a malformed archive")
	}

	if _, err := run(t, srv, "import", filepath.Join(t.TempDir(), "missing.json"), "--password", "pw"); err == nil {
		t.Error("expected error for a missing file")
	}

	if hits.Load() != 0 {
		t.Errorf("server should not be contacted, got %d requests", hits.Load())
	}
}

func TestRestoreCmd(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/alice/import" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.RawQuery
		w.Write([]byte(`{"run_id":"r-2","username":"alice","dry_run":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	path := writeArchive(t, testArchive)

	if _, err := run(t, srv, "restore", path); err == nil {
		t.Fatal("expected error without --username")
	}

	if _, err := run(t, srv, "restore", path, "--username", "alice", "--no-settings", "--dry-run"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if query != "dry_run=true&import_profile=true&import_settings=false" {
		t.Errorf("got query %q", query)
	}
}

func TestValidateCmd_InvalidReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"valid":false,"problems":["something"]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	if _, err := run(t, srv, "validate", writeArchive(t, testArchive)); err == nil {
		t.Error("expected error for an invalid report")
	}
}

func TestAccountCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/bob" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"not_found","message":"account not found"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"account":{"username":"bob","settings":{"language":"de"}},"followed_tags":["testtag"]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := run(t, srv, "account", "bob", "--format", "table")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !strings.Contains(out, "testtag") || !strings.Contains(out, "de") {
		t.Errorf("unexpected table:\n%s", out)
	}

	if _, err := run(t, srv, "account", "ghost"); err == nil {
		t.Error("expected error for a missing account")
	}
}

func TestCommandArgs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cases := [][]string{
		{"import"},
		{"import", "a.json", "b.json"},
		{"restore"},
		{"validate"},
		{"account"},
		{"audit", "extra"},
	}
	for _, args := range cases {
		if _, err := run(t, srv, args...); err == nil {
			t.Errorf("%v: expected arg validation error", args)
		}
	}
}

func TestAuditPurgeCmd(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/audit" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.RawQuery
		w.Write([]byte(`{"deleted":4,"retention_days":30}`)) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := run(t, srv, "audit", "purge", "--days", "30")
	if err != nil {
		t.Fatalf("audit purge: %v", err)
	}
	if query != "retention_days=30" {
		t.Errorf("got query %q", query)
	}
	if !strings.Contains(out, `"deleted": 4`) {
		t.Errorf("expected deleted count on stdout, got %s", out)
	}

	if _, err := run(t, srv, "audit", "purge", "--days", "0"); err == nil {
		t.Error("expected error for --days 0")
	}
}
