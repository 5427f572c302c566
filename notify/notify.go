// Package notify records in-app notifications and relays them to email, WhatsApp and
// mobile push according to each account's preferences.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/realtime"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetSetting(ctx context.Context, userID string) (*models.Setting, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type Mailer interface {
	Send(to, subject, text, html string) error
}

type WhatsApp interface {
	Send(ctx context.Context, phone, message string) error
}

type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]any) error
}

type Message struct {
	UserID string
	Kind   string
	Title  string
	Body   string
	Data   map[string]any
}

type Service struct {
	store    Store
	mailer   Mailer
	whatsapp WhatsApp
	pusher   Pusher
	events   realtime.Publisher
	log      logrus.FieldLogger

	wg sync.WaitGroup
}

func NewService(store Store, mailer Mailer, whatsapp WhatsApp, pusher Pusher, events realtime.Publisher, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		mailer:   mailer,
		whatsapp: whatsapp,
		pusher:   pusher,
		events:   events,
		log:      log,
	}
}

// Notify stores the notification and sends it on the user's enabled channels in the
// background. Delivery failures are logged and never retried.
func (s *Service) Notify(ctx context.Context, m Message) error {
	data := "{}"
	if m.Data != nil {
		if b, err := json.Marshal(m.Data); err == nil {
			data = string(b)
		}
	}

	n := &models.Notification{
		UserID: m.UserID,
		Kind:   m.Kind,
		Title:  m.Title,
		Body:   m.Body,
		Data:   data,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, realtime.NewEvent("notification.created", "notification", n.ID, m.UserID)); err != nil {
			s.log.WithError(err).Warn("Failed to publish notification event")
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.deliver(bg, m)
	}()
	return nil
}

func (s *Service) deliver(ctx context.Context, m Message) {
	log := s.log.WithFields(logrus.Fields{"user_id": m.UserID, "kind": m.Kind})

	user, err := s.store.GetUser(ctx, m.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to load user for notification")
		return
	}
	setting, err := s.store.GetSetting(ctx, m.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to load notification settings")
		return
	}

	if setting.EmailNotifications && s.mailer != nil && user.Email != "" {
		if err := s.mailer.Send(user.Email, m.Title, m.Body, ""); err != nil {
			log.WithError(err).Warn("Failed to send notification email")
		}
	}
	if setting.WhatsAppNotifications && s.whatsapp != nil && user.Phone != "" {
		if err := s.whatsapp.Send(ctx, user.Phone, m.Title+"\n"+m.Body); err != nil {
			log.WithError(err).Warn("Failed to send WhatsApp notification")
		}
	}
	if setting.PushNotifications && s.pusher != nil && user.PushToken != "" {
		if err := s.pusher.Send(ctx, user.PushToken, m.Title, m.Body, m.Data); err != nil {
			log.WithError(err).Warn("Failed to send push notification")
		}
	}
}

// Wait blocks until background deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
