package utils

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WatiMessage represents the structure of a message to send via Wati API
type WatiMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// WhatsApp sends session messages through the Wati API.
type WhatsApp struct {
	client *resty.Client
}

func NewWhatsApp(baseURL, apiKey string) *WhatsApp {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &WhatsApp{client: client}
}

func (w *WhatsApp) Send(ctx context.Context, phone, message string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(WatiMessage{Phone: phone, Message: message}).
		Post("/api/v1/sendSessionMessage")
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send whatsapp message: received status code %d", resp.StatusCode())
	}
	return nil
}
