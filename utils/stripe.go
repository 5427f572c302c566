package utils

import (
	"errors"
	"sync"

	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

var ErrStripeNotConfigured = errors.New("stripe secret key is not configured")

// Stripe wraps the SDK client. The client is built on first use and kept for the
// lifetime of the process.
type Stripe struct {
	key  string
	once sync.Once
	api  *client.API
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{key: secretKey}
}

func (s *Stripe) client() (*client.API, error) {
	if s.key == "" {
		return nil, ErrStripeNotConfigured
	}
	s.once.Do(func() {
		s.api = &client.API{}
		s.api.Init(s.key, nil)
	})
	return s.api, nil
}

func (s *Stripe) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	return api.CheckoutSessions.New(params)
}

func (s *Stripe) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	return api.BillingPortalSessions.New(params)
}

func (s *Stripe) GetSubscription(id string) (*stripe.Subscription, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	return api.Subscriptions.Get(id, nil)
}
