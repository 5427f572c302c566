package store

import (
	"context"
	"time"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate("create notification", s.conn(ctx).Create(n).Error)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := s.conn(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Notification
	err := q.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, translate("list notifications", err)
}

// MarkNotificationRead only touches the row when it belongs to userID.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", at)
	return affected("mark notification read", res)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	return res.RowsAffected, translate("mark notifications read", res.Error)
}
