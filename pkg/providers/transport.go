// Package providers implements the concrete upstream data sources:
// dictionaries, pronunciation audio, translation and images.
package providers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// DefaultUserAgent is sent with every provider request.
const DefaultUserAgent = "vocab-enricher/1.0"

// defaultRetryAfter is assumed when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 60 * time.Second

// Transport performs provider HTTP calls and maps upstream statuses onto the
// apierr taxonomy. Retries and per-attempt timeouts belong to the caller.
type Transport struct {
	client *resty.Client
}

// NewTransport creates a transport with the given user agent.
func NewTransport(userAgent string) *Transport {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)
	return &Transport{client: client}
}

// request describes one GET call.
type request struct {
	provider string
	url      string
	headers  map[string]string
	query    map[string]string
}

// get performs the call and returns the body of a 2xx response.
func (t *Transport) get(ctx context.Context, r request) ([]byte, error) {
	res, err := t.client.R().
		SetContext(ctx).
		SetHeaders(r.headers).
		SetQueryParams(r.query).
		Get(r.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apierr.Provider(r.provider, 0, "request failed", err)
	}

	return checkStatus(r.provider, res.StatusCode(), res.Header(), res.Body())
}

// checkStatus maps non-2xx statuses: 404 is "not found", 429 a rate limit
// carrying Retry-After, 5xx "provider down".
func checkStatus(provider string, status int, header http.Header, body []byte) ([]byte, error) {
	switch {
	case status >= 200 && status < 300:
		return body, nil
	case status == http.StatusNotFound:
		return nil, apierr.Provider(provider, status, "not found", nil)
	case status == http.StatusTooManyRequests:
		e := apierr.RateLimited(provider, parseRetryAfter(header.Get("Retry-After"), time.Now()))
		e.Status = status
		return nil, e
	case status >= 500:
		return nil, apierr.Provider(provider, status, "provider down", nil)
	default:
		return nil, apierr.Provider(provider, status, "unexpected status", nil)
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}
