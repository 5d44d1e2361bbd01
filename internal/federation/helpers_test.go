package federation_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func newTestClient(maxRetries uint64) *federation.Client {
	return federation.NewClient(federation.Options{
		Scheme:     "http",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryBase:  time.Millisecond,
	}, testLogger())
}

// countingServer wraps handler and counts requests.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func handleOn(srv *httptest.Server, local string) models.Handle {
	return models.Handle{LocalID: local, Host: hostOf(srv)}
}
