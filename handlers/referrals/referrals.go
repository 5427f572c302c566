// Package referrals serves referral submission, role-scoped listing and the client's
// pipeline updates.
package referrals

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/metrics"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/notify"
	"github.com/tom2tomtomtom/refer-ify-sub003/pipeline"
	"github.com/tom2tomtomtom/refer-ify-sub003/realtime"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

type Store interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateReferral(ctx context.Context, r *models.Referral) error
	GetReferral(ctx context.Context, id string) (*models.Referral, error)
	ListReferrals(ctx context.Context, f store.ReferralFilter) ([]models.Referral, error)
	UpdateReferralStatus(ctx context.Context, id string, status, rejectedFrom models.ReferralStatus, at time.Time) error
	UpdateReferral(ctx context.Context, id string, fields map[string]interface{}) error
	UpsertCandidate(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, fields map[string]interface{}) error
}

type Notifier interface {
	Notify(ctx context.Context, m notify.Message) error
}

type Files interface {
	CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	Exists(ctx context.Context, bucket, path string) (bool, error)
}

type Config struct {
	Bucket       string
	SignedURLTTL time.Duration
}

type Handler struct {
	store    Store
	notifier Notifier
	events   realtime.Publisher
	files    Files
	cfg      Config
	now      func() time.Time
}

func New(store Store, notifier Notifier, events realtime.Publisher, files Files, cfg Config) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		events:   events,
		files:    files,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	referrers := auth.RequireRole(models.RoleFoundingCircle, models.RoleSelectCircle)

	g := api.Group("/referrals", authenticated, auth.RequireRole(models.Roles...))
	g.GET("", h.List)
	g.POST("", referrers, h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", referrers, h.Update)
	g.PATCH("/:id/status", auth.RequireRole(models.RoleClient), h.UpdateStatus)
	g.POST("/:id/resume/upload-url", referrers, h.ResumeUploadURL)
	g.POST("/:id/resume/confirm", referrers, h.ConfirmResume)
	g.POST("/:id/resume", referrers, h.UploadResume)
	g.GET("/:id/resume", h.ResumeURL)
}

type createInput struct {
	JobID             string `json:"job_id" binding:"required"`
	CandidateEmail    string `json:"candidate_email" binding:"required,email"`
	CandidateName     string `json:"candidate_name" binding:"required,max=200"`
	CandidatePhone    string `json:"candidate_phone" binding:"max=32"`
	CandidateLinkedIn string `json:"candidate_linkedin" binding:"omitempty,url"`
	Notes             string `json:"notes" binding:"max=5000"`
}

// Create submits a referral for an active job. A candidate can be referred to a job once.
func (h *Handler) Create(c *gin.Context) {
	var input createInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	user := handlers.CurrentUser(c)

	job, err := h.store.GetJob(ctx, input.JobID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if job.Status != models.JobActive {
		handlers.Fail(c, handlers.Invalid("Referrals are only accepted for active jobs"))
		return
	}

	profile := &models.Candidate{
		Email:       input.CandidateEmail,
		FullName:    input.CandidateName,
		Phone:       input.CandidatePhone,
		LinkedInURL: input.CandidateLinkedIn,
	}
	if account, err := h.store.GetUserByEmail(ctx, input.CandidateEmail); err == nil && account.VerifiedCandidate() {
		profile.UserID = &account.ID
	}
	candidate, err := h.store.UpsertCandidate(ctx, profile)
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	ref := &models.Referral{
		JobID:             job.ID,
		ReferrerID:        user.ID,
		CandidateID:       candidate.ID,
		CandidateEmail:    input.CandidateEmail,
		CandidateName:     input.CandidateName,
		CandidatePhone:    input.CandidatePhone,
		CandidateLinkedIn: input.CandidateLinkedIn,
		Notes:             input.Notes,
		Status:            models.StatusSubmitted,
		StatusChangedAt:   h.now(),
	}
	if err := h.store.CreateReferral(ctx, ref); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "This candidate has already been referred to this job."})
			return
		}
		handlers.Fail(c, err)
		return
	}
	ref.Job = job
	metrics.ReferralSubmitted()

	h.publish(c, realtime.NewEvent("referral.created", "referral", ref.ID, job.ClientID, user.ID))
	h.notify(c, notify.Message{
		UserID: job.ClientID,
		Kind:   "referral.submitted",
		Title:  "New referral for " + job.Title,
		Body:   input.CandidateName + " was referred to " + job.Title + ".",
		Data:   map[string]any{"referral_id": ref.ID, "job_id": job.ID},
	})

	c.JSON(http.StatusCreated, ref)
}

// List returns the referrals visible to the caller's role.
func (h *Handler) List(c *gin.Context) {
	user := handlers.CurrentUser(c)

	f := store.ReferralFilter{JobID: c.Query("job_id")}
	if s := c.Query("status"); s != "" {
		if !pipeline.Valid(models.ReferralStatus(s)) {
			handlers.Fail(c, handlers.Invalid("unknown referral status"))
			return
		}
		f.Status = models.ReferralStatus(s)
	}
	switch {
	case user.Role == models.RoleClient:
		f.ClientID = user.ID
	case user.Role.Referrer():
		f.ReferrerID = user.ID
	case user.VerifiedCandidate():
		f.CandidateEmail = user.Email
	default:
		handlers.Fail(c, handlers.ErrForbidden)
		return
	}

	refs, err := h.store.ListReferrals(c.Request.Context(), f)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if refs == nil {
		refs = []models.Referral{}
	}
	c.JSON(http.StatusOK, gin.H{"referrals": refs})
}

func (h *Handler) Get(c *gin.Context) {
	ref, ok := h.load(c, canRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ref)
}

type statusInput struct {
	Status string `json:"status" binding:"required,referralstatus"`
}

// UpdateStatus moves a referral along the pipeline. Only the owner of the job may do so.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var input statusInput
	if !handlers.BindJSON(c, &input) {
		return
	}
	ref, ok := h.load(c, ownsJob)
	if !ok {
		return
	}

	next := models.ReferralStatus(input.Status)
	if err := pipeline.CanTransition(ref.Status, next); err != nil {
		handlers.Fail(c, err)
		return
	}

	var rejectedFrom models.ReferralStatus
	if next == models.StatusRejected {
		rejectedFrom = ref.Status
	}
	at := h.now()
	if err := h.store.UpdateReferralStatus(c.Request.Context(), ref.ID, next, rejectedFrom, at); err != nil {
		handlers.Fail(c, err)
		return
	}
	prev := ref.Status
	ref.Status, ref.RejectedFrom, ref.StatusChangedAt = next, rejectedFrom, at
	metrics.ReferralTransition(string(next))

	audience := []string{ref.ReferrerID, ref.Job.ClientID}
	candidateUser := h.candidateUser(c, ref)
	if candidateUser != "" {
		audience = append(audience, candidateUser)
	}
	h.publish(c, realtime.NewEvent("referral.status_changed", "referral", ref.ID, audience...))

	msg := notify.Message{
		UserID: ref.ReferrerID,
		Kind:   "referral.status_changed",
		Title:  "Referral update: " + ref.Job.Title,
		Body:   ref.CandidateName + " moved from " + string(prev) + " to " + string(next) + ".",
		Data:   map[string]any{"referral_id": ref.ID, "status": next},
	}
	h.notify(c, msg)
	if candidateUser != "" {
		msg.UserID = candidateUser
		msg.Body = "Your application for " + ref.Job.Title + " is now " + string(next) + "."
		h.notify(c, msg)
	}

	c.JSON(http.StatusOK, ref)
}

type updateInput struct {
	CandidateName     *string `json:"candidate_name" binding:"omitempty,min=1,max=200"`
	CandidatePhone    *string `json:"candidate_phone" binding:"omitempty,max=32"`
	CandidateLinkedIn *string `json:"candidate_linkedin" binding:"omitempty,url"`
	Notes             *string `json:"notes" binding:"omitempty,max=5000"`
}

// Update edits the referrer-owned details of a referral. The job, referrer and
// status cannot be changed here.
func (h *Handler) Update(c *gin.Context) {
	var input updateInput
	if !handlers.BindJSON(c, &input) {
		return
	}
	ref, ok := h.load(c, ownsReferral)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if input.CandidateName != nil {
		fields["candidate_name"] = *input.CandidateName
		ref.CandidateName = *input.CandidateName
	}
	if input.CandidatePhone != nil {
		fields["candidate_phone"] = *input.CandidatePhone
		ref.CandidatePhone = *input.CandidatePhone
	}
	if input.CandidateLinkedIn != nil {
		fields["candidate_linkedin"] = *input.CandidateLinkedIn
		ref.CandidateLinkedIn = *input.CandidateLinkedIn
	}
	if input.Notes != nil {
		fields["notes"] = *input.Notes
		ref.Notes = *input.Notes
	}
	if len(fields) > 0 {
		if err := h.store.UpdateReferral(c.Request.Context(), ref.ID, fields); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, ref)
}

type accessCheck func(u *models.User, ref *models.Referral) bool

func ownsJob(u *models.User, ref *models.Referral) bool {
	return ref.Job != nil && ref.Job.ClientID == u.ID
}

func ownsReferral(u *models.User, ref *models.Referral) bool {
	return ref.ReferrerID == u.ID
}

func canRead(u *models.User, ref *models.Referral) bool {
	if ownsJob(u, ref) || ownsReferral(u, ref) {
		return true
	}
	return u.VerifiedCandidate() && u.Email == ref.CandidateEmail
}

// load fetches the referral in the path and answers 403 when allowed rejects the caller.
func (h *Handler) load(c *gin.Context, allowed accessCheck) (*models.Referral, bool) {
	ctx := c.Request.Context()
	ref, err := h.store.GetReferral(ctx, c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return nil, false
	}
	if ref.Job == nil {
		if ref.Job, err = h.store.GetJob(ctx, ref.JobID); err != nil {
			handlers.Fail(c, err)
			return nil, false
		}
	}
	if !allowed(handlers.CurrentUser(c), ref) {
		handlers.Fail(c, handlers.ErrForbidden)
		return nil, false
	}
	return ref, true
}

func (h *Handler) candidateUser(c *gin.Context, ref *models.Referral) string {
	if ref.CandidateID == "" {
		return ""
	}
	cand, err := h.store.GetCandidate(c.Request.Context(), ref.CandidateID)
	if err != nil || cand.UserID == nil {
		return ""
	}
	return *cand.UserID
}

func (h *Handler) publish(c *gin.Context, e realtime.Event) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(c.Request.Context(), e); err != nil {
		handlers.Logger(c).WithError(err).WithField("event", e.Type).Warn("Failed to publish realtime event")
	}
}

func (h *Handler) notify(c *gin.Context, m notify.Message) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(c.Request.Context(), m); err != nil {
		handlers.Logger(c).WithError(err).WithField("kind", m.Kind).Warn("Failed to record notification")
	}
}
