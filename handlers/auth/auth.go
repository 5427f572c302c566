// Package auth implements sign-up, sign-in and the session middleware.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
	"golang.org/x/oauth2"
)

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRefreshToken(ctx context.Context, hash string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error
}

type Mailer interface {
	Send(to, subject, text, html string) error
}

type Config struct {
	BaseURL      string
	CookieDomain string
	CookieSecure bool
	RefreshTTL   time.Duration

	// Google sign-in is disabled when OAuth is nil.
	OAuth       *oauth2.Config
	UserInfoURL string
}

type Handler struct {
	store  Store
	tokens *utils.TokenIssuer
	mailer Mailer
	cfg    Config
	now    func() time.Time
}

func New(store Store, tokens *utils.TokenIssuer, mailer Mailer, cfg Config) *Handler {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	return &Handler{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Routes mounts the auth endpoints. limit is applied to every unauthenticated auth route.
func (h *Handler) Routes(api *gin.RouterGroup, limit gin.HandlerFunc) {
	a := api.Group("/auth", limit)
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/magic-link", h.RequestMagicLink)
	a.POST("/magic-link/verify", h.VerifyMagicLink)
	a.GET("/oauth/google", h.GoogleLogin)
	a.GET("/oauth/google/callback", h.GoogleCallback)
	a.POST("/refresh", h.Refresh)
	a.POST("/password/forgot", h.ForgotPassword)
	a.POST("/password/reset", h.ResetPassword)
	a.POST("/logout", h.Middleware(), h.Logout)
	a.POST("/onboarding", h.Middleware(), h.Onboarding)

	api.GET("/me", h.Middleware(), h.Me)
}

// HomeRoute is the dashboard a role lands on after sign-in.
func HomeRoute(role models.Role) string {
	switch role {
	case models.RoleClient:
		return "/dashboard/client"
	case models.RoleFoundingCircle:
		return "/dashboard/founding"
	case models.RoleSelectCircle:
		return "/dashboard/select"
	case models.RoleCandidate:
		return "/dashboard/candidate"
	default:
		return "/onboarding"
	}
}

type session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Redirect     string       `json:"redirect"`
	User         *models.User `json:"user"`
}

// startSession issues fresh tokens, rotates the stored refresh token and sets the cookie.
func (h *Handler) startSession(c *gin.Context, u *models.User) (*session, error) {
	access, exp, err := h.tokens.GenerateAccessToken(u.ID, string(u.Role), u.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := h.now()
	refreshExp := now.Add(h.cfg.RefreshTTL)
	if err := h.store.UpdateUser(c.Request.Context(), u.ID, map[string]interface{}{
		"refresh_token_hash": utils.HashToken(refresh),
		"refresh_expires_at": refreshExp,
		"last_login_at":      now,
	}); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now

	h.setCookie(c, utils.SessionCookie, access, int(time.Until(exp).Seconds()))
	return &session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		Redirect:     HomeRoute(u.Role),
		User:         u,
	}, nil
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}
