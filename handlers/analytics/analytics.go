package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stats "github.com/tom2tomtomtom/refer-ify-sub003/analytics"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

type Store interface {
	ListReferrals(ctx context.Context, f store.ReferralFilter) ([]models.Referral, error)
}

type Handler struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	g := api.Group("/analytics", authenticated)
	g.GET("/client", auth.RequireRole(models.RoleClient), h.Client)
	g.GET("/earnings", auth.RequireRole(models.RoleFoundingCircle, models.RoleSelectCircle), h.Earnings)
}

// Client reports pipeline counts and conversion over the caller's jobs, optionally
// narrowed to one job.
func (h *Handler) Client(c *gin.Context) {
	user := handlers.CurrentUser(c)
	refs, err := h.store.ListReferrals(c.Request.Context(), store.ReferralFilter{
		ClientID: user.ID,
		JobID:    c.Query("job_id"),
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats.Pipeline(refs, h.now()))
}

// Earnings estimates the caller's share of placement fees for hired referrals.
func (h *Handler) Earnings(c *gin.Context) {
	user := handlers.CurrentUser(c)
	refs, err := h.store.ListReferrals(c.Request.Context(), store.ReferralFilter{ReferrerID: user.ID})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"earnings": stats.Earnings(user.Role, refs),
		"pipeline": stats.Pipeline(refs, h.now()),
	})
}
