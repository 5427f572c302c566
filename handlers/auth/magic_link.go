package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

type emailInput struct {
	Email string `json:"email" binding:"required,email"`
}

type codeInput struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// RequestMagicLink emails a sign-in code, creating the account on first use.
func (h *Handler) RequestMagicLink(c *gin.Context) {
	var input emailInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, input.Email)
	if errors.Is(err, store.ErrNotFound) {
		user = &models.User{Email: input.Email}
		err = h.store.CreateUser(ctx, user)
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

	subject, text := utils.SignInEmail(code, h.signInLink(user.Email, code))
	if err := h.mailer.Send(user.Email, subject, text, ""); err != nil {
		handlers.Logger(c).WithError(err).WithField("user_id", user.ID).Error("Failed to send sign-in email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "We could not send the sign-in email. Please try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sign-in code sent to your email."})
}

// VerifyMagicLink exchanges a valid sign-in code for a session.
func (h *Handler) VerifyMagicLink(c *gin.Context) {
	var input codeInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user, ok := h.checkCode(c, input.Email, input.Code)
	if !ok {
		return
	}
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, map[string]interface{}{
		"otp":              "",
		"otp_generated_at": nil,
		"otp_attempts":     0,
		"verified":         true,
	}); err != nil {
		handlers.Fail(c, err)
		return
	}
	user.Verified = true

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) signInLink(email, code string) string {
	return h.cfg.BaseURL + "/auth/callback?" + url.Values{"email": {email}, "code": {code}}.Encode()
}

func (h *Handler) issueCode(c *gin.Context, user *models.User) (string, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return "", err
	}
	err = h.store.UpdateUser(c.Request.Context(), user.ID, map[string]interface{}{
		"otp":              code,
		"otp_generated_at": h.now(),
		"otp_attempts":     0,
	})
	return code, err
}

// checkCode writes the error response itself and reports whether the code is valid.
func (h *Handler) checkCode(c *gin.Context, email, code string) (*models.User, bool) {
	user, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "The code is incorrect. Please try again or request a new one."})
		return nil, false
	}
	if err != nil {
		handlers.Fail(c, err)
		return nil, false
	}

	if user.OTP == "" || user.OTPGeneratedAt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No code was requested. Please request a new one."})
		return nil, false
	}
	if user.OTP != code {
		h.failedAttempt(c, user)
		return nil, false
	}
	if utils.OTPExpired(user.OTPGeneratedAt, h.now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "The code has expired. Please request a new one."})
		return nil, false
	}
	return user, true
}

// failedAttempt counts a wrong guess and burns the code once the limit is reached.
func (h *Handler) failedAttempt(c *gin.Context, user *models.User) {
	attempts := user.OTPAttempts + 1
	fields := map[string]interface{}{"otp_attempts": attempts}
	if attempts >= utils.MaxOTPAttempts {
		fields["otp"] = ""
		fields["otp_generated_at"] = nil
	}
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, fields); err != nil {
		handlers.Fail(c, err)
		return
	}

	if attempts >= utils.MaxOTPAttempts {
		handlers.Logger(c).WithField("user_id", user.ID).Warn("Too many wrong codes, code revoked")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Too many incorrect attempts. Please request a new code."})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "The code is incorrect. Please try again or request a new one."})
}
