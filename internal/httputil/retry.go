// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP retry helpers shared by the clients that
// reach the search index and the embedding service.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// RetryBaseDelay is the first backoff interval. Each further attempt
// doubles it up to RetryMaxDelay. Tests override both to avoid real sleeps.
var (
	RetryBaseDelay = 200 * time.Millisecond
	RetryMaxDelay  = 5 * time.Second
)

const defaultMaxRetries = 3

// RetryStatuses are the response codes worth retrying: rate limiting and
// transient gateway failures.
var RetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Backoff returns the wait before retry number attempt (1-based):
// RetryBaseDelay, then doubling, capped at RetryMaxDelay.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := RetryBaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= RetryMaxDelay {
			return RetryMaxDelay
		}
	}
	return min(d, RetryMaxDelay)
}

// DoWithRetry executes req and retries when the response status is one of
// RetryStatuses, waiting Backoff(n) before retry n.
//
// When maxRetries is 0 the default (3) is used. Request bodies are replayed
// through req.GetBody, so requests built with http.NewRequest from a
// bytes.Reader or strings.Reader retry safely. The body of a retried
// response is drained and closed before sleeping. If ctx is cancelled
// during a wait DoWithRetry returns ctx.Err(). After exhausting retries the
// last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !slices.Contains(RetryStatuses, resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		wait := Backoff(attempt + 1)
		slog.Debug("retrying request",
			"url", req.URL.Redacted(), "status", resp.StatusCode,
			"attempt", attempt+1, "max_retries", maxRetries, "wait", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
