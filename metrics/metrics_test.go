package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterLabelsByRouteTemplate(t *testing.T) {
	m := New(prometheus.NewRegistry())

	ws := new(restful.WebService)
	ws.Path("/api/trends")
	ws.Route(ws.GET("/{id}").To(func(req *restful.Request, resp *restful.Response) {
		resp.WriteHeader(http.StatusNoContent)
	}))
	c := restful.NewContainer()
	c.Filter(m.Filter())
	c.Add(ws)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trends/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/trends/{id}", "204")))
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAuth("login", nil)
	m.RecordAuth("login", errors.New("bad password"))
	m.RecordAuth("login", errors.New("bad password"))
	m.RecordEngagement("view", true)
	m.RecordUpload("meme")
	m.RecordRateLimited("/api/auth/login")
	m.RecordAnalyticsRefresh(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngagementTotal.WithLabelValues("view", "member")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("meme")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("/api/auth/login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsRefreshTotal.WithLabelValues("success")))
	assert.Greater(t, testutil.ToFloat64(m.AnalyticsLastRefresh), 0.0)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordEngagement("use", false)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.Contains(string(body), `trendzn_engagement_total{audience="anonymous",kind="use"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
