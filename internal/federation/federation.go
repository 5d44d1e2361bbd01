// Package federation talks to remote pods: WebFinger discovery of account
// handles and fetching of single posts by GUID.
package federation

import (
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Resolution failures. Both are recoverable by skipping the dependent item.
var (
	ErrNotFound    = errors.New("remote identity or content not found")
	ErrUnreachable = errors.New("remote host unreachable")
)

// ErrCircuitOpen is returned when a host has failed repeatedly and requests
// are being rejected without contacting it. It wraps ErrUnreachable.
var ErrCircuitOpen = errors.New("remote host circuit breaker is open")

// bodyLimit caps every remote response body read.
const bodyLimit = 1 << 20

// Identity is a resolved remote account.
type Identity struct {
	Handle     string `json:"handle"`
	GUID       string `json:"guid,omitempty"`
	PodURL     string `json:"pod_url"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// Options configures a Client.
type Options struct {
	// Scheme is "https" in production; tests point it at plain-HTTP servers.
	Scheme     string
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		Scheme:     "https",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryBase:  250 * time.Millisecond,
	}
}

// Client performs discovery and content fetches against remote pods.
type Client struct {
	opts     Options
	http     *http.Client
	breakers *breakerSet
	log      *logrus.Logger
}

// NewClient creates a Client with a TLS 1.2+ HTTP client.
func NewClient(opts Options, log *logrus.Logger) *Client {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	if opts.RetryBase <= 0 {
		opts.RetryBase = 250 * time.Millisecond
	}

	return &Client{
		opts: opts,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		breakers: newBreakerSet(),
		log:      log,
	}
}
