// Package storage issues time-limited signed URLs for resume files held in a Supabase
// Storage bucket.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// Error is returned for non-2xx responses from the storage API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	storageURL string
	http       *resty.Client
}

// New builds a client for the project at projectURL using the service role key.
func New(projectURL, serviceKey string) *Client {
	base := strings.TrimRight(projectURL, "/") + "/storage/v1"
	rc := resty.New().
		SetTimeout(15*time.Second).
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey)
	return &Client{storageURL: base, http: rc}
}

func (c *Client) configured() bool {
	return c != nil && c.storageURL != "/storage/v1"
}

func objectPath(bucket, path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// CreateSignedURL returns a download URL valid for ttl.
func (c *Client) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}

	var result struct {
		SignedURL string `json:"signedURL"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": int(ttl.Seconds())}).
		Post(c.storageURL + "/object/sign/" + objectPath(bucket, path))
	if err != nil {
		return "", fmt.Errorf("create signed url: %w", err)
	}
	if err := decode(resp, &result); err != nil {
		return "", err
	}
	return c.storageURL + result.SignedURL, nil
}

// CreateSignedUploadURL returns a URL the browser can PUT the file to directly.
func (c *Client) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}

	var result struct {
		URL string `json:"url"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-upsert", "true").
		Post(c.storageURL + "/object/upload/sign/" + objectPath(bucket, path))
	if err != nil {
		return "", fmt.Errorf("create signed upload url: %w", err)
	}
	if err := decode(resp, &result); err != nil {
		return "", err
	}
	return c.storageURL + result.URL, nil
}

// Upload stores data at path, replacing any existing object.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(c.storageURL + "/object/" + objectPath(bucket, path))
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return decode(resp, nil)
}

// Exists reports whether an object is stored at path.
func (c *Client) Exists(ctx context.Context, bucket, path string) (bool, error) {
	if !c.configured() {
		return false, ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Head(c.storageURL + "/object/authenticated/" + objectPath(bucket, path))
	if err != nil {
		return false, fmt.Errorf("head object: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusBadRequest:
		// Storage answers 400 for missing objects on some versions.
		return false, nil
	}
	return false, &Error{StatusCode: resp.StatusCode(), Message: resp.Status()}
}

func decode(resp *resty.Response, out interface{}) error {
	if resp.IsError() {
		return parseError(resp.Body(), resp.StatusCode())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{StatusCode: statusCode, Message: string(body)}
	}
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	return &Error{StatusCode: statusCode, Message: msg}
}
