package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/metrics"
)

// errRetryable marks a failure worth another attempt: transport errors,
// 429 and 5xx responses.
var errRetryable = errors.New("retryable")

// getJSON fetches reqURL from host and decodes the JSON body into out.
// 404 and 410 map to ErrNotFound; everything else that fails maps to
// ErrUnreachable. Retryable failures are retried with exponential backoff
// and count against the host's circuit breaker.
func (c *Client) getJSON(ctx context.Context, kind, host, reqURL, accept string, out any) error {
	if err := c.breakers.allow(host); err != nil {
		metrics.RemoteLookupsTotal.WithLabelValues(kind, "circuit_open").Inc()
		return err
	}

	backoff := retry.WithMaxRetries(c.opts.MaxRetries, retry.NewExponential(c.opts.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.getOnce(ctx, reqURL, accept, out)
		if errors.Is(err, errRetryable) {
			c.log.WithFields(logrus.Fields{"kind": kind, "url": reqURL}).WithError(err).Debug("retrying remote request")
			return retry.RetryableError(err)
		}

		return err
	})

	switch {
	case err == nil:
		c.breakers.recordSuccess(host)
		metrics.RemoteLookupsTotal.WithLabelValues(kind, "found").Inc()

		return nil
	case errors.Is(err, ErrNotFound):
		c.breakers.recordSuccess(host)
		metrics.RemoteLookupsTotal.WithLabelValues(kind, "not_found").Inc()

		return err
	case errors.Is(err, errRetryable):
		c.breakers.recordFailure(host)
	}

	metrics.RemoteLookupsTotal.WithLabelValues(kind, "unreachable").Inc()

	if errors.Is(err, ErrUnreachable) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}

func (c *Client) getOnce(ctx context.Context, reqURL, accept string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrUnreachable, err)
	}

	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, ctx.Err())
		}

		return fmt.Errorf("%w: %w: %w", ErrUnreachable, errRetryable, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, bodyLimit)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		io.Copy(io.Discard, limited) //nolint:errcheck // best-effort drain before close.
		return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		io.Copy(io.Discard, limited) //nolint:errcheck // best-effort drain before close.
		return fmt.Errorf("%w: %w: status %d", ErrUnreachable, errRetryable, resp.StatusCode)
	default:
		io.Copy(io.Discard, limited) //nolint:errcheck // best-effort drain before close.
		return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	}

	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnreachable, err)
	}

	return nil
}
