// Package transport is the resilient HTTP layer under the signaling API:
// one auth scheme injected per call, transparent retry of rate-limited
// responses, and an optional failure hook for diagnostics.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatusError is a non-2xx response that survived the retry policy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// FailureContext describes a call that exhausted its retry budget or failed
// outright. Handed to the failure hook unless the call opted out.
type FailureContext struct {
	RequestID       string
	Method          string
	URL             string
	Status          int // 0 when the request never produced a response
	ResponseHeaders http.Header
	Err             error
}

type FailureHook func(FailureContext)

type Config struct {
	BaseURL   string
	Auth      Auth
	Retry     RetryPolicy
	OnFailure FailureHook
	Logger    zerolog.Logger
}

// Client wraps resty with auth injection and the retry policy bound once.
type Client struct {
	rest *resty.Client
	hook FailureHook
	log  zerolog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	header, err := cfg.Auth.header()
	if err != nil {
		return nil, err
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", header).
		SetHeader("Content-Type", "application/json")
	cfg.Retry.bind(rest)

	return &Client{
		rest: rest,
		hook: cfg.OnFailure,
		log:  cfg.Logger.With().Str("module", "transport").Logger(),
	}, nil
}

type callOptions struct {
	skipHook bool
}

type CallOption func(*callOptions)

// SkipFailureHook suppresses the failure hook for this call only.
func SkipFailureHook() CallOption {
	return func(o *callOptions) { o.skipHook = true }
}

// Do issues one API call. body is JSON-encoded when non-nil; out, when
// non-nil, receives the decoded success payload. Failed calls are reported
// to the failure hook after the retry policy has run its course.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	id := uuid.NewString()
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", id)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.fail(co, FailureContext{RequestID: id, Method: method, URL: c.rest.BaseURL + path, Err: err})
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		serr := &StatusError{Code: resp.StatusCode(), Body: string(resp.Body())}
		c.fail(co, FailureContext{
			RequestID:       id,
			Method:          method,
			URL:             resp.Request.URL,
			Status:          resp.StatusCode(),
			ResponseHeaders: resp.Header(),
			Err:             serr,
		})
		return serr
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode()).Msg("api call")
	return nil
}

func (c *Client) fail(co callOptions, fc FailureContext) {
	c.log.Debug().Str("method", fc.Method).Str("url", fc.URL).Int("status", fc.Status).Err(fc.Err).Msg("api call failed")
	if c.hook != nil && !co.skipHook {
		c.hook(fc)
	}
}
