package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
	"golang.org/x/crypto/bcrypt"
)

const resetSent = "If an account exists for that email, a reset code has been sent."

// ForgotPassword emails a reset code. The response does not reveal whether the account exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input emailInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": resetSent})
		return
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	code, err := h.issueCode(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	subject, text := utils.ResetEmail(code)
	if err := h.mailer.Send(user.Email, subject, text, ""); err != nil {
		handlers.Logger(c).WithError(err).WithField("user_id", user.ID).Error("Failed to send reset email")
	}
	c.JSON(http.StatusOK, gin.H{"message": resetSent})
}

type resetInput struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ResetPassword sets a new password and revokes the current refresh token.
func (h *Handler) ResetPassword(c *gin.Context) {
	var input resetInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user, ok := h.checkCode(c, input.Email, input.Code)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, map[string]interface{}{
		"password_hash":      string(hash),
		"otp":                "",
		"otp_generated_at":   nil,
		"otp_attempts":       0,
		"refresh_token_hash": "",
		"refresh_expires_at": nil,
		"verified":           true,
	}); err != nil {
		handlers.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully. You can now log in."})
}
