package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, MaxRetries: retries, UserAgent: "observer-test"}}
	nm := NewAsyncNetworkManager(cfg, nil)
	nm.RetryBackoff = time.Millisecond
	return nm
}

func TestGet_SendsParamsAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("c"))
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		assert.Equal(t, "observer-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	body, err := newTestManager(0).Get(context.Background(), srv.URL+"/historical", map[string]string{"c": "secret", "f": "json"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, err := newTestManager(2).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_ClientErrorFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestManager(3).Get(context.Background(), srv.URL, map[string]string{"c": "secret"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var netErr *helpers.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusForbidden, netErr.Status)
	assert.ErrorIs(t, err, helpers.ErrUpstreamStatus)
	assert.False(t, strings.Contains(err.Error(), "secret"), "credentials must not leak into errors")
}

func TestGet_ExhaustedRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestManager(1).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestGet_TransportErrorHidesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestManager(0).Get(context.Background(), addr, map[string]string{"c": "secret"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestProxyHelpers(t *testing.T) {
	assert.Equal(t, "http://10.0.0.1:3128", helpers.FormatProxy("10.0.0.1:3128"))
	assert.True(t, helpers.ValidateProxy("socks5://10.0.0.1:1080"))
	assert.False(t, helpers.ValidateProxy(""))

	pm := helpers.NewProxyManager([]string{"10.0.0.1:3128", "", "10.0.0.2:3128"}, "", nil)
	first, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3128", first)
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.Equal(t, "http://10.0.0.2:3128", second)
	assert.NotEmpty(t, pm.GetUserAgent())
}
