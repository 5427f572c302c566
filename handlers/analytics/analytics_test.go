package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stats "github.com/tom2tomtomtom/refer-ify-sub003/analytics"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

var users = map[string]*models.User{
	"client":  {ID: "client", Role: models.RoleClient},
	"other":   {ID: "other", Role: models.RoleClient},
	"founder": {ID: "founder", Role: models.RoleFoundingCircle},
	"select":  {ID: "select", Role: models.RoleSelectCircle},
	"cand":    {ID: "cand", Role: models.RoleCandidate},
}

func asUser(c *gin.Context) {
	u, ok := users[c.GetHeader("X-User")]
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	handlers.SetUser(c, u)
	c.Next()
}

type fakeStore struct {
	refs []models.Referral
}

func (f *fakeStore) ListReferrals(_ context.Context, flt store.ReferralFilter) ([]models.Referral, error) {
	var out []models.Referral
	for _, r := range f.refs {
		if flt.ClientID != "" && (r.Job == nil || r.Job.ClientID != flt.ClientID) {
			continue
		}
		if flt.ReferrerID != "" && r.ReferrerID != flt.ReferrerID {
			continue
		}
		if flt.JobID != "" && r.JobID != flt.JobID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	job := &models.Job{ID: "job-1", ClientID: "client", Title: "CFO", SalaryMin: 200000, SalaryMax: 300000}
	other := &models.Job{ID: "job-2", ClientID: "other", Title: "CTO", SalaryMin: 100000, SalaryMax: 100000}

	st := &fakeStore{refs: []models.Referral{
		{ID: "r1", JobID: "job-1", ReferrerID: "founder", Status: models.StatusSubmitted, CreatedAt: now.AddDate(0, 0, -2), Job: job},
		{ID: "r2", JobID: "job-1", ReferrerID: "founder", Status: models.StatusReviewed, CreatedAt: now.AddDate(0, 0, -4), Job: job},
		{ID: "r3", JobID: "job-1", ReferrerID: "select", Status: models.StatusShortlisted, CreatedAt: now.AddDate(0, 0, -6), Job: job},
		{ID: "r4", JobID: "job-1", ReferrerID: "founder", CandidateName: "Ada", Status: models.StatusHired, CreatedAt: now.AddDate(0, 0, -10), Job: job},
		{ID: "r5", JobID: "job-2", ReferrerID: "select", Status: models.StatusHired, CreatedAt: now.AddDate(0, 0, -1), Job: other},
	}}

	h := New(st)
	h.now = func() time.Time { return now }

	r := gin.New()
	h.Routes(r.Group("/api"), asUser)
	return r
}

func get(r *gin.Engine, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClientPipeline(t *testing.T) {
	r := setup(t)

	w := get(r, "/api/analytics/client", "client")
	require.Equal(t, http.StatusOK, w.Code)

	var got stats.PipelineStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, map[models.ReferralStatus]int{
		models.StatusSubmitted:    1,
		models.StatusReviewed:     1,
		models.StatusShortlisted:  1,
		models.StatusInterviewing: 0,
		models.StatusHired:        1,
		models.StatusRejected:     0,
	}, got.PipelineCounts)
	assert.InDelta(t, 10.0, got.AvgTimeToHire, 0.001)

	w = get(r, "/api/analytics/client?job_id=job-2", "client")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Total)
}

func TestClientPipelineRoles(t *testing.T) {
	r := setup(t)

	assert.Equal(t, http.StatusForbidden, get(r, "/api/analytics/client", "founder").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/analytics/client", "cand").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/analytics/client", "").Code)
}

func TestEarnings(t *testing.T) {
	r := setup(t)

	w := get(r, "/api/analytics/earnings", "founder")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Earnings stats.EarningsSummary `json:"earnings"`
		Pipeline stats.PipelineStats   `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Earnings.HiredCount)
	assert.True(t, body.Earnings.TotalEarnings.Equal(decimal.NewFromInt(7500)), body.Earnings.TotalEarnings.String())
	require.Len(t, body.Earnings.Placements, 1)
	assert.Equal(t, "Ada", body.Earnings.Placements[0].CandidateName)
	assert.Equal(t, 3, body.Pipeline.Total)

	w = get(r, "/api/analytics/earnings", "select")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// 40% of a 20000 fee on job-2.
	assert.True(t, body.Earnings.TotalEarnings.Equal(decimal.NewFromInt(8000)), body.Earnings.TotalEarnings.String())

	assert.Equal(t, http.StatusForbidden, get(r, "/api/analytics/earnings", "client").Code)
}
