package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

type onboardingInput struct {
	Role        string `json:"role" binding:"required,role"`
	FullName    string `json:"full_name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url" binding:"omitempty,url"`
}

// Onboarding assigns the role of an account created through a magic link or Google.
// A role can only be chosen once.
func (h *Handler) Onboarding(c *gin.Context) {
	user := handlers.CurrentUser(c)
	if user.Role != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Your account already has a role."})
		return
	}

	var input onboardingInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	fields := map[string]interface{}{"role": input.Role}
	if input.FullName != "" {
		fields["full_name"] = input.FullName
		user.FullName = input.FullName
	}
	if input.Company != "" {
		fields["company"] = input.Company
		user.Company = input.Company
	}
	if input.Title != "" {
		fields["title"] = input.Title
		user.Title = input.Title
	}
	if input.LinkedInURL != "" {
		fields["linkedin_url"] = input.LinkedInURL
		user.LinkedInURL = input.LinkedInURL
	}
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, fields); err != nil {
		handlers.Fail(c, err)
		return
	}
	user.Role = models.Role(input.Role)

	s, err := h.startSession(c, user)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) Me(c *gin.Context) {
	user := handlers.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"redirect": HomeRoute(user.Role),
	})
}
