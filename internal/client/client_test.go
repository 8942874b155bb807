package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/config"
	"github.com/raphaelgruber/matchlight-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) (*client.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.AccessKey = "test-access"
	cfg.SecretKey = "test-secret"
	cfg.Endpoint = srv.URL + "/api/v2"
	cfg.SearchEndpoint = srv.URL + "/api/v1"

	c, err := client.New(cfg, client.WithBackOff(func() backoff.BackOff {
		return &backoff.ZeroBackOff{}
	}))
	require.NoError(t, err)
	return c, srv
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv(config.EnvAccessKey, "")
	t.Setenv(config.EnvSecretKey, "")

	_, err := client.New(config.Default())
	var cfgErr *client.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), config.EnvAccessKey)
}

func TestNewCredentialsFromEnv(t *testing.T) {
	t.Setenv(config.EnvAccessKey, "env-access")
	t.Setenv(config.EnvSecretKey, "env-secret")

	c, err := client.New(config.Default())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEndpoint, c.Endpoint())
	assert.Equal(t, config.DefaultSearchEndpoint, c.SearchEndpoint())
}

func TestNewInvalidProxy(t *testing.T) {
	cfg := config.Default()
	cfg.AccessKey, cfg.SecretKey = "a", "b"
	cfg.HTTPSProxy = "://bad"

	_, err := client.New(cfg)
	var cfgErr *client.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRequestGetCarriesAuthAndHeaders(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/projects", r.URL.Path)
		assert.Equal(t, "pii", r.URL.Query().Get("project_type"))
		assert.False(t, r.URL.Query().Has("empty"), "empty query values are dropped")

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test-access", user)
		assert.Equal(t, "test-secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		_, _ = io.WriteString(w, `{"data": []}`)
	}))

	resp, err := c.Request(context.Background(), "/projects", nil,
		client.WithQuery(url.Values{"project_type": {"pii"}, "empty": {""}}))
	require.NoError(t, err)

	var out struct {
		Data []any `json:"data"`
	}
	require.NoError(t, resp.JSON(&out))
	assert.NotNil(t, out.Data)
}

func TestRequestPostWithBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"x","type":"pii"}`, string(body))
		_, _ = io.WriteString(w, `{}`)
	}))

	_, err := c.Request(context.Background(), "/project/add", map[string]string{"name": "x", "type": "pii"})
	require.NoError(t, err)
}

func TestRequestRawBytesSentVerbatim(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{}`, string(body))
		_, _ = io.WriteString(w, `{}`)
	}))

	_, err := c.Request(context.Background(), "/project/abc/delete", []byte(`{}`))
	require.NoError(t, err)
}

func TestRequestEndpointOverride(t *testing.T) {
	var path atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	}))

	_, err := c.Request(context.Background(), "/search", []byte(`{}`), client.WithEndpoint(c.SearchEndpoint()))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search", path.Load())
}

func TestRequestAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message": "nope"}`)
	}))

	_, err := c.Request(context.Background(), "/projects", nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Forbidden", apiErr.Reason)
	assert.Equal(t, map[string]any{"message": "nope"}, apiErr.Body)
	assert.False(t, client.IsNotFound(err))
}

func TestRequestAPIErrorNonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `<html>bad</html>`)
	}))

	_, err := c.Request(context.Background(), "/projects", nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Nil(t, apiErr.Body)
}

func TestRequestRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"ok": true}`)
	}))

	resp, err := c.Request(context.Background(), "/search", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())

	snap := c.Stats()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, metrics.OpSearch, snap.Operations[0].Operation)
	assert.Equal(t, int64(2), snap.Operations[0].Retries)
}

func TestRequestRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Request(context.Background(), "/projects", nil)
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, connErr.Error(), "too many retries")
	assert.Equal(t, int32(6), calls.Load(), "one attempt plus five retries")

	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestNewZeroMaxRetriesUsesDefault(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		status     int
		wantCalls  int32
	}{
		{"zero value retries until success", 0, http.StatusOK, 3},
		{"zero value allows five retries", 0, http.StatusServiceUnavailable, 6},
		{"negative disables retries", -1, http.StatusServiceUnavailable, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{}`)
			}))
			t.Cleanup(srv.Close)

			cfg := config.Config{AccessKey: "a", SecretKey: "b", Endpoint: srv.URL, MaxRetries: tt.maxRetries}
			c, err := client.New(cfg, client.WithBackOff(func() backoff.BackOff {
				return &backoff.ZeroBackOff{}
			}))
			require.NoError(t, err)

			_, err = c.Request(context.Background(), "/projects", nil)
			if tt.status == http.StatusOK {
				assert.NoError(t, err)
			} else {
				var connErr *client.ConnectionError
				assert.ErrorAs(t, err, &connErr)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRequestNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Request(context.Background(), "/project/x", nil)
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestConnectionFailure(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := c.Request(context.Background(), "/projects", nil)
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, connErr.Error(), "connection error")
}

func TestRequestPerAttemptTimeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	_, err := c.Request(context.Background(), "/projects", nil, client.WithTimeout(10*time.Millisecond))
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestLookup(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/project/found":
			_, _ = io.WriteString(w, `{"project_name": "a"}`)
		case "/api/v2/project/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	ctx := context.Background()

	resp, found, err := c.Lookup(ctx, "/project/found")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, resp)

	resp, found, err = c.Lookup(ctx, "/project/missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, resp)

	_, found, err = c.Lookup(ctx, "/project/broken")
	require.Error(t, err)
	assert.False(t, found)
	var connErr *client.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestFetchSkipsCredentials(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok, "pre-signed fetch must not carry credentials")
		_, _ = io.WriteString(w, "ts,url\n")
	}))

	data, err := c.Fetch(context.Background(), srv.URL+"/export.csv?sig=abc")
	require.NoError(t, err)
	assert.Equal(t, "ts,url\n", string(data))
}
