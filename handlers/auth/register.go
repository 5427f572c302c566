package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
	"golang.org/x/crypto/bcrypt"
)

type registerInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required,role"`
	Company  string `json:"company"`
	Title    string `json:"title"`
}

// Register creates an account with a password and signs it in. The account stays
// unverified until the emailed code is confirmed through the magic-link verify route.
func (h *Handler) Register(c *gin.Context) {
	var input registerInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUserByEmail(ctx, input.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists. Please log in or use the forgot password option."})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		handlers.Fail(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	user := &models.User{
		Email:        input.Email,
		FullName:     input.FullName,
		Company:      input.Company,
		Title:        input.Title,
		Role:         models.Role(input.Role),
		PasswordHash: string(hash),
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists. Please log in or use the forgot password option."})
			return
		}
		handlers.Fail(c, err)
		return
	}

	h.sendVerification(c, user)

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// sendVerification mails a confirmation code. Failures are logged; the caller can ask
// for a fresh code through the magic-link route.
func (h *Handler) sendVerification(c *gin.Context, user *models.User) {
	code, err := h.issueCode(c, user)
	if err == nil {
		subject, text := utils.SignInEmail(code, h.signInLink(user.Email, code))
		err = h.mailer.Send(user.Email, subject, text, "")
	}
	if err != nil {
		handlers.Logger(c).WithError(err).WithField("user_id", user.ID).Warn("Failed to send verification email")
	}
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data. Please provide a valid email and password."})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
