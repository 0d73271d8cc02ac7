package transport

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Delay = 5 * time.Millisecond
	return p
}

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL: srv.URL,
		Auth:    Bearer("tok-123"),
		Retry:   testPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestRetriesRateLimitedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	r := gin.New()
	r.POST("/op", func(c *gin.Context) {
		if calls.Add(1) <= 2 {
			c.String(http.StatusTooManyRequests, "slow down")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	c := newTestClient(t, r)

	var out struct {
		Status string `json:"status"`
	}
	err := c.Do(context.Background(), http.MethodPost, "/op", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, int32(3), calls.Load(), "429 twice then success should take exactly 3 attempts")
}

func TestRetriesExhaustedReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	r := gin.New()
	r.POST("/op", func(c *gin.Context) {
		calls.Add(1)
		c.String(http.StatusTooManyRequests, "slow down")
	})

	c := newTestClient(t, r)

	err := c.Do(context.Background(), http.MethodPost, "/op", nil, nil)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNonRateLimitFailurePropagatesImmediately(t *testing.T) {
	var calls atomic.Int32
	r := gin.New()
	r.POST("/op", func(c *gin.Context) {
		calls.Add(1)
		c.String(http.StatusInternalServerError, "boom")
	})

	c := newTestClient(t, r)

	err := c.Do(context.Background(), http.MethodPost, "/op", nil, nil)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Equal(t, int32(1), calls.Load(), "non-429 must not consume the retry budget")
}

func TestAuthHeaderInjection(t *testing.T) {
	basicCred := base64.StdEncoding.EncodeToString([]byte("user:secret"))
	cases := []struct {
		name string
		auth Auth
		want string
	}{
		{"bearer", Bearer("tok-123"), "Bearer tok-123"},
		{"basic", Basic("user", "secret"), "Basic " + basicCred},
		{"client key", ClientKey("ck-9"), "Client-Key ck-9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			r := gin.New()
			r.GET("/whoami", func(c *gin.Context) {
				got = c.GetHeader("Authorization")
				c.Status(http.StatusOK)
			})

			c := newTestClient(t, r, func(cfg *Config) { cfg.Auth = tc.auth })
			require.NoError(t, c.Do(context.Background(), http.MethodGet, "/whoami", nil, nil))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMissingAuthRejected(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"})
	require.Error(t, err)
}

func TestFailureHookReceivesContext(t *testing.T) {
	r := gin.New()
	r.POST("/op", func(c *gin.Context) {
		c.Header("Retry-After", "60")
		c.String(http.StatusForbidden, "nope")
	})

	var got FailureContext
	c := newTestClient(t, r, func(cfg *Config) {
		cfg.OnFailure = func(fc FailureContext) { got = fc }
	})

	err := c.Do(context.Background(), http.MethodPost, "/op", gin.H{"a": 1}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, got.Status)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Contains(t, got.URL, "/op")
	assert.Equal(t, "60", got.ResponseHeaders.Get("Retry-After"))
	assert.NotEmpty(t, got.RequestID)
}

func TestFailureHookOptOut(t *testing.T) {
	r := gin.New()
	r.POST("/op", func(c *gin.Context) {
		c.String(http.StatusForbidden, "nope")
	})

	hookCalled := false
	c := newTestClient(t, r, func(cfg *Config) {
		cfg.OnFailure = func(FailureContext) { hookCalled = true }
	})

	err := c.Do(context.Background(), http.MethodPost, "/op", nil, nil, SkipFailureHook())
	require.Error(t, err)
	assert.False(t, hookCalled, "SkipFailureHook must suppress the hook for this call")
}
