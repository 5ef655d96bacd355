// Package httpc provides HTTP clients with timeouts set and a small retry
// helper for the cloud speech providers.
package httpc

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 15 * time.Second
	DefaultConnectTimeout  = 5 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// NewClient creates an HTTP client with the given overall timeout.
// Speech requests are short, so idle connections are kept warm per host.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Retryable reports whether a response status is worth retrying (429 or 5xx).
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// RetryPolicy controls DoWithRetry.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration // multiplied by the attempt number
	// OnRetry, if set, is called before each retry with the failed attempt's
	// status (0 for a transport error).
	OnRetry func(attempt, status int)
}

// DoWithRetry sends the request produced by newReq, retrying transport errors
// and retryable statuses with linear backoff. newReq is called once per attempt
// so request bodies are fresh. When retries run out on a retryable status that
// response is returned as-is for the caller to turn into an error.
func DoWithRetry(ctx context.Context, c *http.Client, p RetryPolicy, newReq func() (*http.Request, error)) (*http.Response, error) {
	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			if p.OnRetry != nil {
				p.OnRetry(attempt, status)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.Delay * time.Duration(attempt)):
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		r, err := c.Do(req.WithContext(ctx))
		if err != nil {
			lastErr, resp = err, nil
			continue
		}
		if Retryable(r.StatusCode) && attempt < p.MaxRetries {
			r.Body.Close()
			lastErr, resp = nil, r
			continue
		}
		return r, nil
	}
	return nil, lastErr
}
