package utils

import (
	"errors"
	"net/http"
	"strings"
)

// SessionCookie carries the access token for browser sessions.
const SessionCookie = "referify_session"

var ErrMissingToken = errors.New("authorization header is missing")

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>" header value.
func ExtractBearer(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// TokenFromRequest prefers the Authorization header and falls back to the session cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		return ExtractBearer(h)
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", ErrMissingToken
}
