package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

const secret = "whsec_test"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := handlers.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeStore struct {
	jobs          map[string]*models.Job
	txs           map[string]*models.PaymentTransaction
	subs          map[string]*models.Subscription
	customerIDs   map[string]string
	subscriptions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs: map[string]*models.Job{
			"draft": {ID: "draft", ClientID: "client", Title: "CFO", Status: models.JobDraft, Tier: models.TierPriority},
			"live":  {ID: "live", ClientID: "client", Title: "CTO", Status: models.JobActive, Tier: models.TierConnect},
		},
		txs:         map[string]*models.PaymentTransaction{},
		subs:        map[string]*models.Subscription{},
		customerIDs: map[string]string{},
	}
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) GetTier(_ context.Context, code models.TierCode) (*models.Tier, error) {
	switch code {
	case models.TierPriority:
		return &models.Tier{Code: code, Name: "Priority", PriceCents: 150000, Currency: "usd", DurationDays: 60, StripePriceID: "price_priority"}, nil
	case models.TierConnect:
		return &models.Tier{Code: code, Name: "Connect", PriceCents: 50000, Currency: "usd", DurationDays: 30}, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ActivateJob(_ context.Context, id string, days int, now time.Time) error {
	j, ok := f.jobs[id]
	if !ok || j.Status != models.JobDraft {
		return store.ErrNotFound
	}
	exp := now.AddDate(0, 0, days)
	j.Status, j.PublishedAt, j.ExpiresAt = models.JobActive, &now, &exp
	return nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id string, fields map[string]interface{}) error {
	f.customerIDs[id] = fields["stripe_customer_id"].(string)
	return nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx *models.PaymentTransaction) error {
	tx.ID = "tx-" + tx.StripeSessionID
	cp := *tx
	f.txs[tx.StripeSessionID] = &cp
	return nil
}

func (f *fakeStore) GetTransactionBySession(_ context.Context, sessionID string) (*models.PaymentTransaction, error) {
	tx, ok := f.txs[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, id string, fields map[string]interface{}) error {
	for _, tx := range f.txs {
		if tx.ID == id {
			tx.Status = fields["status"].(models.PaymentStatus)
			if pi, ok := fields["stripe_payment_intent_id"].(string); ok {
				tx.StripePaymentIntentID = pi
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListTransactions(_ context.Context, clientID string) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	for _, tx := range f.txs {
		if tx.ClientID == clientID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	f.subscriptions++
	cp := *sub
	f.subs[sub.StripeSubscriptionID] = &cp
	return nil
}

func (f *fakeStore) GetSubscriptionByStripeID(_ context.Context, stripeID string) (*models.Subscription, error) {
	s, ok := f.subs[stripeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) LatestSubscription(_ context.Context, clientID string) (*models.Subscription, error) {
	for _, s := range f.subs {
		if s.ClientID == clientID {
			return s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateSubscriptionStatus(_ context.Context, stripeID, status string) error {
	s, ok := f.subs[stripeID]
	if !ok {
		return store.ErrNotFound
	}
	s.Status = status
	return nil
}

type fakePayments struct {
	checkout *stripe.CheckoutSessionParams
	err      error
	subErr   error
}

func (p *fakePayments) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.checkout = params
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
}

func (p *fakePayments) NewPortalSession(*stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/1"}, p.err
}

func (p *fakePayments) GetSubscription(id string) (*stripe.Subscription, error) {
	if p.subErr != nil {
		return nil, p.subErr
	}
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusActive, CurrentPeriodEnd: 1767225600}, nil
}

var users = map[string]*models.User{
	"client":  {ID: "client", Role: models.RoleClient, Email: "c@acme.com"},
	"rival":   {ID: "rival", Role: models.RoleClient, Email: "r@rival.com", StripeCustomerID: "cus_r"},
	"founder": {ID: "founder", Role: models.RoleFoundingCircle},
}

func asUser(c *gin.Context) {
	handlers.SetUser(c, users[c.GetHeader("X-User")])
	c.Next()
}

func setup() (*gin.Engine, *fakeStore, *fakePayments) {
	st := newFakeStore()
	pay := &fakePayments{}
	r := gin.New()
	New(st, pay, Config{BaseURL: "https://app.example.com", WebhookSecret: secret}).Routes(r.Group("/api"), asUser)
	return r, st, pay
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sendEvent(r *gin.Engine, eventType, object string) *httptest.ResponseRecorder {
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":"%s","data":{"object":%s}}`, eventType, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret, Timestamp: time.Now()})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckout(t *testing.T) {
	r, st, pay := setup()

	t.Run("Should start a checkout and record a pending transaction", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/billing/checkout", "client", `{"job_id":"draft"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "https://checkout.stripe.com/c/cs_1")

		require.NotNil(t, pay.checkout)
		assert.Equal(t, "draft", pay.checkout.Metadata["job_id"])
		assert.Equal(t, int64(150000), *pay.checkout.LineItems[0].PriceData.UnitAmount)
		assert.Equal(t, "c@acme.com", *pay.checkout.CustomerEmail)

		tx := st.txs["cs_1"]
		require.NotNil(t, tx)
		assert.Equal(t, models.PaymentPending, tx.Status)
	})

	t.Run("Should refuse published or foreign jobs", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/billing/checkout", "client", `{"job_id":"live"}`).Code)
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/billing/checkout", "rival", `{"job_id":"draft"}`).Code)
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/billing/checkout", "founder", `{"job_id":"draft"}`).Code)
	})

	t.Run("Should map processor failures to 502", func(t *testing.T) {
		pay.err = errors.New("card_declined")
		defer func() { pay.err = nil }()
		assert.Equal(t, http.StatusBadGateway, do(r, http.MethodPost, "/api/billing/checkout", "client", `{"job_id":"draft"}`).Code)
	})

	t.Run("Should report missing configuration", func(t *testing.T) {
		pay.err = utils.ErrStripeNotConfigured
		defer func() { pay.err = nil }()
		assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/billing/checkout", "client", `{"job_id":"draft"}`).Code)
	})
}

func TestSubscribeAndPortal(t *testing.T) {
	r, _, pay := setup()

	w := do(r, http.MethodPost, "/api/billing/subscribe", "rival", `{"tier":"priority"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "price_priority", *pay.checkout.LineItems[0].Price)
	assert.Equal(t, "cus_r", *pay.checkout.Customer)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/billing/subscribe", "rival", `{"tier":"connect"}`).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/billing/portal", "rival", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/billing/portal", "client", "").Code)
}

func TestWebhookSubscriptionLookupFailure(t *testing.T) {
	r, st, pay := setup()
	pay.subErr = errors.New("stripe unavailable")

	w := sendEvent(r, "checkout.session.completed",
		`{"id":"cs_3","object":"checkout.session","mode":"subscription","subscription":"sub_2","customer":"cus_new","client_reference_id":"client","metadata":{"client_id":"client","tier":"priority"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, st.subs["sub_2"])

	w = do(r, http.MethodGet, "/api/billing/subscription", "client", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":false`)

	t.Run("Should mirror the subscription on redelivery", func(t *testing.T) {
		pay.subErr = nil
		w := sendEvent(r, "checkout.session.completed",
			`{"id":"cs_3","object":"checkout.session","mode":"subscription","subscription":"sub_2","customer":"cus_new","client_reference_id":"client","metadata":{"client_id":"client","tier":"priority"}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NotNil(t, st.subs["sub_2"])
		assert.Equal(t, "active", st.subs["sub_2"].Status)
	})
}

func TestWebhook(t *testing.T) {
	r, st, _ := setup()
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/billing/checkout", "client", `{"job_id":"draft"}`).Code)

	t.Run("Should reject a bad signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should acknowledge unknown events", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, sendEvent(r, "charge.refunded", `{"id":"ch_1"}`).Code)
	})

	t.Run("Should mark the transaction paid and activate the job", func(t *testing.T) {
		w := sendEvent(r, "checkout.session.completed",
			`{"id":"cs_1","object":"checkout.session","mode":"payment","payment_intent":"pi_1","customer":"cus_new","metadata":{"job_id":"draft"}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, models.PaymentPaid, st.txs["cs_1"].Status)
		assert.Equal(t, "pi_1", st.txs["cs_1"].StripePaymentIntentID)
		assert.Equal(t, models.JobActive, st.jobs["draft"].Status)
		assert.Equal(t, "cus_new", st.customerIDs["client"])
	})

	t.Run("Should be idempotent on redelivery", func(t *testing.T) {
		w := sendEvent(r, "checkout.session.completed", `{"id":"cs_1","object":"checkout.session","mode":"payment"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should mirror subscriptions", func(t *testing.T) {
		w := sendEvent(r, "checkout.session.completed",
			`{"id":"cs_2","object":"checkout.session","mode":"subscription","subscription":"sub_1","customer":"cus_new","client_reference_id":"client","metadata":{"client_id":"client","tier":"priority"}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		sub := st.subs["sub_1"]
		require.NotNil(t, sub)
		assert.Equal(t, "client", sub.ClientID)
		assert.Equal(t, "active", sub.Status)
		assert.Equal(t, models.TierPriority, sub.Tier)
		require.NotNil(t, sub.CurrentPeriodEnd)

		w = sendEvent(r, "invoice.payment_failed", `{"id":"in_1","object":"invoice","subscription":"sub_1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "past_due", st.subs["sub_1"].Status)

		w = sendEvent(r, "customer.subscription.deleted", `{"id":"sub_1","object":"subscription","status":"canceled"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "canceled", st.subs["sub_1"].Status)
		assert.Equal(t, models.TierPriority, st.subs["sub_1"].Tier)

		w = do(r, http.MethodGet, "/api/billing/subscription", "client", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"active":false`)
	})

	t.Run("Should expire abandoned checkouts", func(t *testing.T) {
		st.txs["cs_9"] = &models.PaymentTransaction{ID: "tx-cs_9", ClientID: "client", StripeSessionID: "cs_9", Status: models.PaymentPending}
		w := sendEvent(r, "checkout.session.expired", `{"id":"cs_9","object":"checkout.session"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.PaymentExpired, st.txs["cs_9"].Status)
	})

	t.Run("Should list the client's transactions", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/billing/transactions", "client", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"stripe_session_id":"cs_1"`)
	})
}
