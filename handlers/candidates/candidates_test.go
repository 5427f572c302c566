package candidates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := handlers.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeStore struct {
	candidates map[string]*models.Candidate
	byClient   map[string][]string
	byReferrer map[string][]string
	referrals  []models.Referral
	lastFilter store.ReferralFilter
}

func (f *fakeStore) pick(ids []string) []models.Candidate {
	var out []models.Candidate
	for _, id := range ids {
		out = append(out, *f.candidates[id])
	}
	return out
}

func (f *fakeStore) ListClientCandidates(_ context.Context, clientID string) ([]models.Candidate, error) {
	return f.pick(f.byClient[clientID]), nil
}

func (f *fakeStore) ListReferrerCandidates(_ context.Context, referrerID string) ([]models.Candidate, error) {
	return f.pick(f.byReferrer[referrerID]), nil
}

func (f *fakeStore) GetCandidate(_ context.Context, id string) (*models.Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) UpsertCandidate(_ context.Context, c *models.Candidate) (*models.Candidate, error) {
	for _, existing := range f.candidates {
		if existing.Email == c.Email {
			if existing.UserID == nil {
				existing.UserID = c.UserID
			}
			return existing, nil
		}
	}
	c.ID = "new"
	f.candidates[c.ID] = c
	return c, nil
}

func (f *fakeStore) UpdateCandidate(_ context.Context, id string, fields map[string]interface{}) error {
	c := f.candidates[id]
	if v, ok := fields["phone"].(string); ok {
		c.Phone = v
	}
	return nil
}

func (f *fakeStore) ListReferrals(_ context.Context, filter store.ReferralFilter) ([]models.Referral, error) {
	f.lastFilter = filter
	return f.referrals, nil
}

var users = map[string]*models.User{
	"client":    {ID: "client", Role: models.RoleClient},
	"other":     {ID: "other", Role: models.RoleClient},
	"founder":   {ID: "founder", Role: models.RoleFoundingCircle},
	"candidate": {ID: "candidate", Role: models.RoleCandidate, Email: "grace@example.com", FullName: "Grace", Verified: true},
	"impostor":  {ID: "impostor", Role: models.RoleCandidate, Email: "grace@example.com", FullName: "Grace"},
}

func asUser(c *gin.Context) {
	handlers.SetUser(c, users[c.GetHeader("X-User")])
	c.Next()
}

func setup() (*gin.Engine, *fakeStore) {
	st := &fakeStore{
		candidates: map[string]*models.Candidate{
			"c1": {ID: "c1", Email: "grace@example.com", FullName: "Grace"},
			"c2": {ID: "c2", Email: "linus@example.com", FullName: "Linus"},
		},
		byClient:   map[string][]string{"client": {"c1"}},
		byReferrer: map[string][]string{"founder": {"c1", "c2"}},
		referrals:  []models.Referral{{ID: "r1", CandidateEmail: "grace@example.com"}},
	}
	r := gin.New()
	New(st).Routes(r.Group("/api"), asUser)
	return r, st
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList(t *testing.T) {
	r, _ := setup()

	w := do(r, http.MethodGet, "/api/candidates", "founder", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct{ Candidates []models.Candidate }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Candidates, 2)

	w = do(r, http.MethodGet, "/api/candidates", "other", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"candidates":[]}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/candidates", "candidate", "").Code)
}

func TestGet(t *testing.T) {
	r, st := setup()

	w := do(r, http.MethodGet, "/api/candidates/c1", "client", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client", st.lastFilter.ClientID)
	assert.Equal(t, "grace@example.com", st.lastFilter.CandidateEmail)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/candidates/c2", "client", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/candidates/zz", "client", "").Code)
}

func TestCandidateSelfService(t *testing.T) {
	r, st := setup()

	w := do(r, http.MethodGet, "/api/candidate/applications", "candidate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"r1"`)
	assert.Equal(t, "grace@example.com", st.lastFilter.CandidateEmail)

	w = do(r, http.MethodPut, "/api/candidate/profile", "candidate", `{"phone":"+1 555 0100"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "+1 555 0100", st.candidates["c1"].Phone)
	require.NotNil(t, st.candidates["c1"].UserID)
	assert.Equal(t, "candidate", *st.candidates["c1"].UserID)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/candidate/applications", "founder", "").Code)
}

func TestUnverifiedCandidateSelfService(t *testing.T) {
	r, st := setup()

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/candidate/applications", "impostor", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/api/candidate/profile", "impostor", `{"phone":"+1 555 0199"}`).Code)
	assert.Nil(t, st.candidates["c1"].UserID)
	assert.Empty(t, st.candidates["c1"].Phone)
}
