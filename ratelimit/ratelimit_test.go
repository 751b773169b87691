package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimiter(t *testing.T, requests int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, requests, time.Minute, "test", zap.NewNop()), mr
}

func TestAllow(t *testing.T) {
	l, mr := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys are independent.
	ok, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowFailsOpen(t *testing.T) {
	l, mr := newLimiter(t, 1)
	mr.Close()

	ok, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, ok)
}

func newContainer(l *Limiter) *restful.Container {
	ws := new(restful.WebService)
	ws.Path("/api/auth")
	ws.Route(ws.POST("/login").Filter(l.Filter()).To(func(req *restful.Request, resp *restful.Response) {
		_ = resp.WriteHeaderAndJson(http.StatusOK, map[string]string{"message": "ok"}, restful.MIME_JSON)
	}))
	c := restful.NewContainer()
	c.Add(ws)
	return c
}

func TestFilter(t *testing.T) {
	l, _ := newLimiter(t, 2)
	var limited []string
	l.OnLimited = func(route string) { limited = append(limited, route) }
	c := newContainer(l)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, limitedMessage, body["error"])
	assert.Equal(t, []string{"/api/auth/login"}, limited)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestFilterFailsOpen(t *testing.T) {
	l, mr := newLimiter(t, 1)
	c := newContainer(l)
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIPIgnoresHeadersFromUntrustedPeers(t *testing.T) {
	l, _ := newLimiter(t, 2)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", l.clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Real-IP", "203.0.113.8")
	assert.Equal(t, "192.0.2.1", l.clientIP(req))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	l, _ := newLimiter(t, 2)
	require.NoError(t, l.TrustProxies([]string{"10.0.0.0/8", "192.0.2.9"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 203.0.113.7, 10.0.0.5")
	// The client can prepend anything; only the hop added by our proxy counts.
	assert.Equal(t, "203.0.113.7", l.clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.8")
	assert.Equal(t, "203.0.113.8", l.clientIP(req))

	req.Header.Del("X-Real-IP")
	assert.Equal(t, "10.1.2.3", l.clientIP(req))

	req.RemoteAddr = "192.0.2.9:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", l.clientIP(req))

	require.Error(t, l.TrustProxies([]string{"not-an-ip"}))
}

func TestSpoofedForwardedForDoesNotResetCount(t *testing.T) {
	l, _ := newLimiter(t, 2)
	c := newContainer(l)

	rejected := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.50:4321"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}
	assert.Equal(t, 18, rejected)
}
