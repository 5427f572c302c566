package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

type sessionError struct{ msg string }

func (e sessionError) Error() string { return e.msg }

// NoSession reports whether err means the request carries no usable session.
func NoSession(err error) bool {
	var se sessionError
	return errors.As(err, &se)
}

// Authenticate resolves the caller's account from the request. The role is read from
// storage, not from the token.
func (h *Handler) Authenticate(r *http.Request) (*models.User, error) {
	tokenString, err := utils.TokenFromRequest(r)
	if errors.Is(err, utils.ErrMissingToken) {
		return nil, sessionError{"Authorization header is missing"}
	}
	if err != nil {
		return nil, sessionError{"Invalid authorization header format"}
	}

	claims, err := h.tokens.Parse(tokenString)
	if err != nil {
		return nil, sessionError{"Invalid token"}
	}

	user, err := h.store.GetUser(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, sessionError{"User not found"}
	}
	return user, err
}

func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.Authenticate(c.Request)
		if NoSession(err) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			handlers.Fail(c, err)
			c.Abort()
			return
		}

		handlers.SetUser(c, user)
		c.Next()
	}
}

// RequireRole allows the request through only when the caller's stored role is one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Your role does not have access to this resource"})
	}
}

// RequireVerified rejects accounts whose email address has not been confirmed yet.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Please verify your email address first"})
			return
		}
		c.Next()
	}
}
