package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/metrics"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
)

const maxWebhookBody = int64(65536)

// Webhook verifies the Stripe signature and mirrors payment state. Processing errors
// answer 500 so Stripe redelivers; unknown event types are acknowledged.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		handlers.Logger(c).WithError(err).Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}
	metrics.WebhookEvent(string(event.Type))

	log := handlers.Logger(c).WithField("event_id", event.ID).WithField("event_type", event.Type)
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &sess); err == nil {
			if sess.Mode == stripe.CheckoutSessionModeSubscription {
				err = h.subscriptionCheckout(c, &sess)
			} else {
				err = h.paymentCheckout(c, &sess)
			}
		}
	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &sess); err == nil {
			err = h.expireCheckout(c, &sess)
		}
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err = json.Unmarshal(event.Data.Raw, &sub); err == nil {
			err = h.mirrorSubscription(c, &sub, "")
		}
	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err = json.Unmarshal(event.Data.Raw, &inv); err == nil && inv.Subscription != nil {
			err = h.store.UpdateSubscriptionStatus(c.Request.Context(), inv.Subscription.ID, string(stripe.SubscriptionStatusPastDue))
			if errors.Is(err, store.ErrNotFound) {
				err = nil
			}
			metrics.Payment(string(models.PaymentFailed))
		}
	default:
		log.Debug("Ignoring webhook event")
	}

	if err != nil {
		log.WithError(err).Error("Failed to process webhook event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// paymentCheckout marks the posting paid and activates the job for its tier.
func (h *Handler) paymentCheckout(c *gin.Context, sess *stripe.CheckoutSession) error {
	ctx := c.Request.Context()
	tx, err := h.store.GetTransactionBySession(ctx, sess.ID)
	if errors.Is(err, store.ErrNotFound) {
		handlers.Logger(c).WithField("session_id", sess.ID).Warn("Checkout completed for an unknown session")
		return nil
	}
	if err != nil {
		return err
	}
	if tx.Status == models.PaymentPaid {
		return nil
	}

	fields := map[string]interface{}{"status": models.PaymentPaid}
	if sess.PaymentIntent != nil {
		fields["stripe_payment_intent_id"] = sess.PaymentIntent.ID
	}
	if err := h.store.UpdateTransaction(ctx, tx.ID, fields); err != nil {
		return err
	}
	metrics.Payment(string(models.PaymentPaid))

	if err := h.saveCustomer(c, tx.ClientID, sess.Customer); err != nil {
		return err
	}

	tier, err := h.store.GetTier(ctx, tx.Tier)
	if err != nil {
		return err
	}
	err = h.store.ActivateJob(ctx, tx.JobID, tier.DurationDays, h.now())
	if errors.Is(err, store.ErrNotFound) {
		// Already published or archived.
		return nil
	}
	return err
}

func (h *Handler) subscriptionCheckout(c *gin.Context, sess *stripe.CheckoutSession) error {
	clientID := sess.Metadata["client_id"]
	if clientID == "" {
		clientID = sess.ClientReferenceID
	}
	if clientID == "" || sess.Subscription == nil {
		return nil
	}
	if err := h.saveCustomer(c, clientID, sess.Customer); err != nil {
		return err
	}

	sub, err := h.payments.GetSubscription(sess.Subscription.ID)
	if err != nil {
		// Answered with a 500 so the processor redelivers the event.
		return fmt.Errorf("load subscription %s: %w", sess.Subscription.ID, err)
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]string{}
	}
	if sub.Metadata["tier"] == "" {
		sub.Metadata["tier"] = sess.Metadata["tier"]
	}
	if sub.Customer == nil {
		sub.Customer = sess.Customer
	}
	return h.mirrorSubscription(c, sub, clientID)
}

func (h *Handler) mirrorSubscription(c *gin.Context, sub *stripe.Subscription, clientID string) error {
	ctx := c.Request.Context()
	mirror := &models.Subscription{
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		Tier:                 models.TierCode(sub.Metadata["tier"]),
		ClientID:             clientID,
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		mirror.CurrentPeriodEnd = &end
	}
	if sub.Customer != nil {
		mirror.StripeCustomerID = sub.Customer.ID
	}

	existing, err := h.store.GetSubscriptionByStripeID(ctx, sub.ID)
	switch {
	case err == nil:
		mirror.ClientID = existing.ClientID
		if mirror.Tier == "" {
			mirror.Tier = existing.Tier
		}
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	if mirror.ClientID == "" {
		mirror.ClientID = sub.Metadata["client_id"]
	}
	if mirror.ClientID == "" {
		handlers.Logger(c).WithField("subscription_id", sub.ID).Warn("Subscription event without a client")
		return nil
	}
	return h.store.UpsertSubscription(ctx, mirror)
}

func (h *Handler) expireCheckout(c *gin.Context, sess *stripe.CheckoutSession) error {
	ctx := c.Request.Context()
	tx, err := h.store.GetTransactionBySession(ctx, sess.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if tx.Status != models.PaymentPending {
		return nil
	}
	metrics.Payment(string(models.PaymentExpired))
	return h.store.UpdateTransaction(ctx, tx.ID, map[string]interface{}{"status": models.PaymentExpired})
}

func (h *Handler) saveCustomer(c *gin.Context, clientID string, customer *stripe.Customer) error {
	if customer == nil || customer.ID == "" {
		return nil
	}
	err := h.store.UpdateUser(c.Request.Context(), clientID, map[string]interface{}{"stripe_customer_id": customer.ID})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
