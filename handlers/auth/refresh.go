package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

// Refresh rotates the refresh token and issues a new access token.
func (h *Handler) Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data. Please provide a refresh token."})
		return
	}

	user, err := h.store.GetUserByRefreshToken(c.Request.Context(), utils.HashToken(input.RefreshToken))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if user.RefreshExpiresAt == nil || h.now().After(*user.RefreshExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token has expired"})
		return
	}

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Logout revokes the refresh token and clears the session cookie. Access tokens stay
// valid until they expire.
func (h *Handler) Logout(c *gin.Context) {
	user := handlers.CurrentUser(c)
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, map[string]interface{}{
		"refresh_token_hash": "",
		"refresh_expires_at": nil,
	}); err != nil {
		handlers.Fail(c, err)
		return
	}

	h.setCookie(c, utils.SessionCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful."})
}
