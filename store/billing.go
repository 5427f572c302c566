package store

import (
	"context"
	"time"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	return translate("create transaction", s.conn(ctx).Create(tx).Error)
}

func (s *Store) GetTransactionBySession(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := s.conn(ctx).Where("stripe_session_id = ?", sessionID).First(&tx).Error; err != nil {
		return nil, translate("get transaction", err)
	}
	return &tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&models.PaymentTransaction{}).Where("id = ?", id).Updates(fields)
	return affected("update transaction", res)
}

func (s *Store) ListTransactions(ctx context.Context, clientID string) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	err := s.conn(ctx).Where("client_id = ?", clientID).Order("created_at desc").Find(&out).Error
	return out, translate("list transactions", err)
}

// ExpireStaleTransactions marks pending checkouts created before cutoff as expired.
func (s *Store) ExpireStaleTransactions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.PaymentTransaction{}).
		Where("status = ? AND created_at < ?", models.PaymentPending, cutoff).
		Update("status", models.PaymentExpired)
	return res.RowsAffected, translate("expire transactions", res.Error)
}

// UpsertSubscription inserts or refreshes the mirror of a Stripe subscription.
func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "tier", "current_period_end", "cancel_at_period_end", "stripe_customer_id", "updated_at",
		}),
	}).Create(sub).Error
	return translate("upsert subscription", err)
}

func (s *Store) GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.conn(ctx).Where("stripe_subscription_id = ?", stripeID).First(&sub).Error; err != nil {
		return nil, translate("get subscription", err)
	}
	return &sub, nil
}

// LatestSubscription returns the most recently updated subscription of a client.
func (s *Store) LatestSubscription(ctx context.Context, clientID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.conn(ctx).Where("client_id = ?", clientID).Order("updated_at desc").First(&sub).Error
	if err != nil {
		return nil, translate("latest subscription", err)
	}
	return &sub, nil
}

func (s *Store) UpdateSubscriptionStatus(ctx context.Context, stripeID, status string) error {
	res := s.conn(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeID).
		Update("status", status)
	return affected("update subscription status", res)
}
