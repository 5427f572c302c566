package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/jobs/:id", "204"))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/jobs/:id", "204"))
	assert.Equal(t, float64(2), after-before)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "referify_http_requests_total")
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(referralTransitions.WithLabelValues("hired"))
	ReferralTransition("hired")
	assert.Equal(t, float64(1), testutil.ToFloat64(referralTransitions.WithLabelValues("hired"))-before)

	beforeRuns := testutil.ToFloat64(jobRuns.WithLabelValues("unknown", "true"))
	RecordJobRun("", 0, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRuns.WithLabelValues("unknown", "true"))-beforeRuns)

	RecordJobRun("archive_expired_jobs", 25*time.Millisecond, false)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRuns.WithLabelValues("archive_expired_jobs", "false")))
}
