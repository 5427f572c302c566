// Package jobs serves job postings: client CRUD and the public active listing.
package jobs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/realtime"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

type Store interface {
	GetTier(ctx context.Context, code models.TierCode) (*models.Tier, error)
	CreateJob(ctx context.Context, j *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListClientJobs(ctx context.Context, clientID string, status models.JobStatus) ([]models.Job, error)
	ListActiveJobs(ctx context.Context) ([]models.Job, error)
	UpdateJob(ctx context.Context, id string, fields map[string]interface{}) error
	ActivateJob(ctx context.Context, id string, days int, now time.Time) error
	LatestSubscription(ctx context.Context, clientID string) (*models.Subscription, error)
}

type Handler struct {
	store  Store
	events realtime.Publisher
	now    func() time.Time
}

func New(store Store, events realtime.Publisher) *Handler {
	return &Handler{store: store, events: events, now: time.Now}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	g := api.Group("/jobs", authenticated, auth.RequireRole(models.Roles...))
	g.GET("", h.List)
	g.GET("/:id", h.Get)

	owner := g.Group("", auth.RequireRole(models.RoleClient))
	owner.POST("", h.Create)
	owner.PUT("/:id", h.Update)
	owner.DELETE("/:id", h.Archive)
	owner.POST("/:id/publish", h.Publish)
}

type jobInput struct {
	Title        string `json:"title" binding:"required,max=200"`
	Company      string `json:"company" binding:"max=200"`
	Location     string `json:"location" binding:"max=200"`
	Remote       bool   `json:"remote"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	SalaryMin    int64  `json:"salary_min" binding:"gte=0"`
	SalaryMax    int64  `json:"salary_max" binding:"gtefield=SalaryMin"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
	Tier         string `json:"tier" binding:"required,tier"`
}

func (h *Handler) Create(c *gin.Context) {
	var input jobInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user := handlers.CurrentUser(c)
	job := &models.Job{
		ClientID:     user.ID,
		Title:        input.Title,
		Company:      input.Company,
		Location:     input.Location,
		Remote:       input.Remote,
		Description:  input.Description,
		Requirements: input.Requirements,
		SalaryMin:    input.SalaryMin,
		SalaryMax:    input.SalaryMax,
		Currency:     input.Currency,
		Tier:         models.TierCode(input.Tier),
		Status:       models.JobDraft,
	}
	if job.Company == "" {
		job.Company = user.Company
	}
	if job.Currency == "" {
		job.Currency = "usd"
	}
	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// List returns a client's own jobs, or the active listing for every other role.
func (h *Handler) List(c *gin.Context) {
	user := handlers.CurrentUser(c)
	ctx := c.Request.Context()

	var (
		jobs []models.Job
		err  error
	)
	if user.Role == models.RoleClient {
		status := models.JobStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			handlers.Fail(c, handlers.Invalid("status must be draft, active or archived"))
			return
		}
		jobs, err = h.store.ListClientJobs(ctx, user.ID, status)
	} else {
		jobs, err = h.store.ListActiveJobs(ctx)
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) Get(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	user := handlers.CurrentUser(c)
	if job.ClientID != user.ID && job.Status != models.JobActive {
		handlers.Fail(c, store.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, job)
}

type updateInput struct {
	Title        *string `json:"title" binding:"omitempty,min=1,max=200"`
	Company      *string `json:"company" binding:"omitempty,max=200"`
	Location     *string `json:"location" binding:"omitempty,max=200"`
	Remote       *bool   `json:"remote"`
	Description  *string `json:"description"`
	Requirements *string `json:"requirements"`
	SalaryMin    *int64  `json:"salary_min" binding:"omitempty,gte=0"`
	SalaryMax    *int64  `json:"salary_max" binding:"omitempty,gte=0"`
	Tier         *string `json:"tier" binding:"omitempty,tier"`
	Status       *string `json:"status" binding:"omitempty,jobstatus"`
}

// Update edits a job owned by the caller. Activation only happens through Publish.
func (h *Handler) Update(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}

	var input updateInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	fields := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	setString("title", input.Title)
	setString("company", input.Company)
	setString("location", input.Location)
	setString("description", input.Description)
	setString("requirements", input.Requirements)
	if input.Remote != nil {
		fields["remote"] = *input.Remote
	}

	lo, hi := job.SalaryMin, job.SalaryMax
	if input.SalaryMin != nil {
		lo = *input.SalaryMin
		fields["salary_min"] = lo
	}
	if input.SalaryMax != nil {
		hi = *input.SalaryMax
		fields["salary_max"] = hi
	}
	if hi < lo {
		handlers.Fail(c, handlers.Invalid("salary_max must be at least salary_min"))
		return
	}

	if input.Tier != nil {
		if job.Status != models.JobDraft && models.TierCode(*input.Tier) != job.Tier {
			handlers.Fail(c, handlers.Invalid("the tier of a published job cannot change"))
			return
		}
		fields["tier"] = *input.Tier
	}
	if input.Status != nil {
		next := models.JobStatus(*input.Status)
		switch {
		case next == job.Status:
		case next == models.JobActive:
			handlers.Fail(c, handlers.Invalid("use the publish endpoint to activate a job"))
			return
		case !job.Status.CanMoveTo(next):
			handlers.Fail(c, handlers.Invalid("a job cannot move from "+string(job.Status)+" to "+string(next)))
			return
		default:
			fields["status"] = next
		}
	}

	if len(fields) > 0 {
		if err := h.store.UpdateJob(c.Request.Context(), job.ID, fields); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	h.respondJob(c, job.ID, http.StatusOK)
}

// Archive takes a job off the listing. Archiving an archived job is a no-op.
func (h *Handler) Archive(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	if job.Status != models.JobArchived {
		if err := h.store.UpdateJob(c.Request.Context(), job.ID, map[string]interface{}{"status": models.JobArchived}); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job archived"})
}

// Publish activates a draft for clients with an active subscription. Clients without
// one pay per posting through billing checkout.
func (h *Handler) Publish(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	if job.Status != models.JobDraft {
		handlers.Fail(c, handlers.Invalid("only draft jobs can be published"))
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.LatestSubscription(ctx, job.ClientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		handlers.Fail(c, err)
		return
	}
	if sub == nil || !sub.Active() {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":    "An active subscription is required to publish. Purchase this posting through checkout instead.",
			"checkout": "/api/billing/checkout",
		})
		return
	}

	tier, err := h.store.GetTier(ctx, job.Tier)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if err := h.store.ActivateJob(ctx, job.ID, tier.DurationDays, h.now()); err != nil {
		handlers.Fail(c, err)
		return
	}

	if h.events != nil {
		if err := h.events.Publish(ctx, realtime.NewEvent("job.published", "job", job.ID, job.ClientID)); err != nil {
			handlers.Logger(c).WithError(err).Warn("Failed to publish job event")
		}
	}
	h.respondJob(c, job.ID, http.StatusOK)
}

func (h *Handler) ownedJob(c *gin.Context) (*models.Job, bool) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return nil, false
	}
	if job.ClientID != handlers.CurrentUser(c).ID {
		handlers.Fail(c, handlers.ErrForbidden)
		return nil, false
	}
	return job, true
}

func (h *Handler) respondJob(c *gin.Context, id string, code int) {
	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(code, job)
}
