// Package candidates serves candidate profiles to clients and referrers, and the
// candidate's own view of their applications.
package candidates

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

type Store interface {
	ListClientCandidates(ctx context.Context, clientID string) ([]models.Candidate, error)
	ListReferrerCandidates(ctx context.Context, referrerID string) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	UpsertCandidate(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, fields map[string]interface{}) error
	ListReferrals(ctx context.Context, f store.ReferralFilter) ([]models.Referral, error)
}

type Handler struct {
	store Store
}

func New(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	network := api.Group("/candidates", authenticated,
		auth.RequireRole(models.RoleClient, models.RoleFoundingCircle, models.RoleSelectCircle))
	network.GET("", h.List)
	network.GET("/:id", h.Get)

	self := api.Group("/candidate", authenticated, auth.RequireRole(models.RoleCandidate), auth.RequireVerified())
	self.GET("/applications", h.Applications)
	self.PUT("/profile", h.UpdateProfile)
}

func (h *Handler) visible(c *gin.Context) ([]models.Candidate, error) {
	user := handlers.CurrentUser(c)
	if user.Role == models.RoleClient {
		return h.store.ListClientCandidates(c.Request.Context(), user.ID)
	}
	return h.store.ListReferrerCandidates(c.Request.Context(), user.ID)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.visible(c)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if list == nil {
		list = []models.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": list})
}

// Get returns a candidate with the referrals the caller can see for them.
func (h *Handler) Get(c *gin.Context) {
	candidate, err := h.store.GetCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	list, err := h.visible(c)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	found := false
	for _, v := range list {
		if v.ID == candidate.ID {
			found = true
			break
		}
	}
	if !found {
		handlers.Fail(c, handlers.ErrForbidden)
		return
	}

	user := handlers.CurrentUser(c)
	f := store.ReferralFilter{CandidateEmail: candidate.Email}
	if user.Role == models.RoleClient {
		f.ClientID = user.ID
	} else {
		f.ReferrerID = user.ID
	}
	refs, err := h.store.ListReferrals(c.Request.Context(), f)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if refs == nil {
		refs = []models.Referral{}
	}
	c.JSON(http.StatusOK, gin.H{"candidate": candidate, "referrals": refs})
}

func (h *Handler) Applications(c *gin.Context) {
	user := handlers.CurrentUser(c)
	refs, err := h.store.ListReferrals(c.Request.Context(), store.ReferralFilter{CandidateEmail: user.Email})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if refs == nil {
		refs = []models.Referral{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": refs})
}

type profileInput struct {
	FullName    *string `json:"full_name" binding:"omitempty,min=1,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=32"`
	LinkedInURL *string `json:"linkedin_url" binding:"omitempty,url"`
}

// UpdateProfile links the candidate profile to the account and edits it.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var input profileInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user := handlers.CurrentUser(c)
	ctx := c.Request.Context()
	profile, err := h.store.UpsertCandidate(ctx, &models.Candidate{
		Email:    user.Email,
		FullName: user.FullName,
		UserID:   &user.ID,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	fields := map[string]interface{}{}
	if input.FullName != nil {
		fields["full_name"] = *input.FullName
		profile.FullName = *input.FullName
	}
	if input.Phone != nil {
		fields["phone"] = *input.Phone
		profile.Phone = *input.Phone
	}
	if input.LinkedInURL != nil {
		fields["linkedin_url"] = *input.LinkedInURL
		profile.LinkedInURL = *input.LinkedInURL
	}
	if len(fields) > 0 {
		if err := h.store.UpdateCandidate(ctx, profile.ID, fields); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, profile)
}
