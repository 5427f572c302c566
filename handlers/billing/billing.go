// Package billing serves job posting checkout, subscriptions and the payment webhook.
package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v80"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/metrics"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

type Store interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetTier(ctx context.Context, code models.TierCode) (*models.Tier, error)
	ActivateJob(ctx context.Context, id string, days int, now time.Time) error
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error

	CreateTransaction(ctx context.Context, tx *models.PaymentTransaction) error
	GetTransactionBySession(ctx context.Context, sessionID string) (*models.PaymentTransaction, error)
	UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error
	ListTransactions(ctx context.Context, clientID string) ([]models.PaymentTransaction, error)

	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*models.Subscription, error)
	LatestSubscription(ctx context.Context, clientID string) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, stripeID, status string) error
}

// Payments is the subset of the Stripe API the handlers call.
type Payments interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
}

type Config struct {
	BaseURL       string
	WebhookSecret string
}

type Handler struct {
	store    Store
	payments Payments
	cfg      Config
	now      func() time.Time
}

func New(store Store, payments Payments, cfg Config) *Handler {
	return &Handler{store: store, payments: payments, cfg: cfg, now: time.Now}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	api.POST("/billing/webhook", h.Webhook)

	g := api.Group("/billing", authenticated, auth.RequireRole(models.RoleClient))
	g.POST("/checkout", h.Checkout)
	g.POST("/subscribe", h.Subscribe)
	g.POST("/portal", h.Portal)
	g.GET("/transactions", h.Transactions)
	g.GET("/subscription", h.Subscription)
}

type checkoutInput struct {
	JobID string `json:"job_id" binding:"required"`
}

// Checkout starts a one-time payment that publishes a draft job at its tier.
func (h *Handler) Checkout(c *gin.Context) {
	var input checkoutInput
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
	if job.ClientID != user.ID {
		handlers.Fail(c, handlers.ErrForbidden)
		return
	}
	if job.Status != models.JobDraft {
		handlers.Fail(c, handlers.Invalid("only draft jobs can be checked out"))
		return
	}
	tier, err := h.store.GetTier(ctx, job.Tier)
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(h.cfg.BaseURL + "/dashboard/client?checkout=success&job=" + job.ID),
		CancelURL:         stripe.String(h.cfg.BaseURL + "/dashboard/client?checkout=cancelled&job=" + job.ID),
		ClientReferenceID: stripe.String(user.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(tier.Currency),
				UnitAmount: stripe.Int64(tier.PriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(tier.Name + " posting: " + job.Title),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	setCustomer(params, user)
	params.AddMetadata("job_id", job.ID)
	params.AddMetadata("client_id", user.ID)
	params.AddMetadata("tier", string(tier.Code))

	sess, err := h.payments.NewCheckoutSession(params)
	if err != nil {
		h.paymentFailed(c, err)
		return
	}

	tx := &models.PaymentTransaction{
		ClientID:        user.ID,
		JobID:           job.ID,
		Tier:            tier.Code,
		StripeSessionID: sess.ID,
		Amount:          tier.PriceCents,
		Currency:        tier.Currency,
		Status:          models.PaymentPending,
	}
	if err := h.store.CreateTransaction(ctx, tx); err != nil {
		handlers.Fail(c, err)
		return
	}
	metrics.Payment(string(models.PaymentPending))

	c.JSON(http.StatusOK, gin.H{"url": sess.URL, "session_id": sess.ID, "transaction": tx})
}

type subscribeInput struct {
	Tier string `json:"tier" binding:"required,tier"`
}

// Subscribe starts a recurring subscription that lets the client publish without
// per-posting checkout.
func (h *Handler) Subscribe(c *gin.Context) {
	var input subscribeInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user := handlers.CurrentUser(c)
	tier, err := h.store.GetTier(c.Request.Context(), models.TierCode(input.Tier))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if tier.StripePriceID == "" {
		handlers.Fail(c, handlers.Invalid("this tier is not offered as a subscription"))
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(h.cfg.BaseURL + "/dashboard/client?subscription=success"),
		CancelURL:         stripe.String(h.cfg.BaseURL + "/dashboard/client?subscription=cancelled"),
		ClientReferenceID: stripe.String(user.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(tier.StripePriceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"client_id": user.ID, "tier": string(tier.Code)},
		},
	}
	setCustomer(params, user)
	params.AddMetadata("client_id", user.ID)
	params.AddMetadata("tier", string(tier.Code))

	sess, err := h.payments.NewCheckoutSession(params)
	if err != nil {
		h.paymentFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": sess.URL, "session_id": sess.ID})
}

// Portal opens the Stripe billing portal for clients that have paid before.
func (h *Handler) Portal(c *gin.Context) {
	user := handlers.CurrentUser(c)
	if user.StripeCustomerID == "" {
		handlers.Fail(c, handlers.Invalid("no billing account exists yet"))
		return
	}

	sess, err := h.payments.NewPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(user.StripeCustomerID),
		ReturnURL: stripe.String(h.cfg.BaseURL + "/dashboard/client"),
	})
	if err != nil {
		h.paymentFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

func (h *Handler) Transactions(c *gin.Context) {
	txs, err := h.store.ListTransactions(c.Request.Context(), handlers.CurrentUser(c).ID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if txs == nil {
		txs = []models.PaymentTransaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *Handler) Subscription(c *gin.Context) {
	sub, err := h.store.LatestSubscription(c.Request.Context(), handlers.CurrentUser(c).ID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"subscription": nil, "active": false})
		return
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "active": sub.Active()})
}

func setCustomer(params *stripe.CheckoutSessionParams, user *models.User) {
	if user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
		return
	}
	params.CustomerEmail = stripe.String(user.Email)
}

func (h *Handler) paymentFailed(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrStripeNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}
	handlers.Logger(c).WithError(err).Error("Payment processor request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": "Payment processor error. Please try again later."})
}
