package utils

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type PushMessage struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Pusher delivers mobile push notifications through the Expo push service.
type Pusher struct {
	url    string
	client *resty.Client
}

func NewPusher(url string) *Pusher {
	return &Pusher{url: url, client: resty.New()}
}

func (p *Pusher) Send(ctx context.Context, token, title, body string, data map[string]any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(PushMessage{To: token, Sound: "default", Title: title, Body: body, Data: data}).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send push notification: status %d, response: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
