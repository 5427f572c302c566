package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	stateCookie       = "referify_oauth_state"
)

// GoogleConfig returns nil when Google sign-in is not configured.
func GoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

type googleProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleLogin redirects to Google's consent screen with a state bound to a cookie.
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.cfg.OAuth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state, err := utils.GenerateRefreshToken()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.setCookie(c, stateCookie, state, 600)
	c.Redirect(http.StatusFound, h.cfg.OAuth.AuthCodeURL(state))
}

// GoogleCallback finishes the OAuth exchange, upserts the account and redirects to its home route.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.cfg.OAuth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	h.setCookie(c, stateCookie, "", -1)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.cfg.OAuth.Exchange(ctx, code)
	if err != nil {
		handlers.Logger(c).WithError(err).Warn("Google code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google sign-in failed"})
		return
	}

	profile, err := h.fetchProfile(c, tok)
	if err != nil {
		handlers.Logger(c).WithError(err).Warn("Google profile lookup failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google sign-in failed"})
		return
	}
	if profile.Email == "" || !profile.EmailVerified {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Your Google email address is not verified"})
		return
	}

	user, err := h.store.GetUserByEmail(ctx, profile.Email)
	if errors.Is(err, store.ErrNotFound) {
		user = &models.User{Email: profile.Email, FullName: profile.Name, Verified: true}
		err = h.store.CreateUser(ctx, user)
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.cfg.BaseURL+s.Redirect)
}

func (h *Handler) fetchProfile(c *gin.Context, tok *oauth2.Token) (*googleProfile, error) {
	client := h.cfg.OAuth.Client(c.Request.Context(), tok)
	resp, err := client.Get(h.cfg.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
