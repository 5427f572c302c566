package settings

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

type Store interface {
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error
	GetSetting(ctx context.Context, userID string) (*models.Setting, error)
	SaveSetting(ctx context.Context, st *models.Setting) error
}

type Handler struct {
	store Store
}

func New(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	g := api.Group("/settings", authenticated, auth.RequireRole(models.Roles...))
	g.GET("", h.Get)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/notifications", h.UpdateNotifications)
}

func (h *Handler) Get(c *gin.Context) {
	user := handlers.CurrentUser(c)
	st, err := h.store.GetSetting(c.Request.Context(), user.ID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": user, "settings": st})
}

type profileInput struct {
	FullName    *string `json:"full_name" binding:"omitempty,min=1,max=200"`
	Company     *string `json:"company" binding:"omitempty,max=200"`
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=32"`
	LinkedInURL *string `json:"linkedin_url" binding:"omitempty,url"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var input profileInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user := handlers.CurrentUser(c)
	fields := map[string]interface{}{}
	for col, v := range map[string]struct {
		in  *string
		dst *string
	}{
		"full_name":    {input.FullName, &user.FullName},
		"company":      {input.Company, &user.Company},
		"title":        {input.Title, &user.Title},
		"phone":        {input.Phone, &user.Phone},
		"linkedin_url": {input.LinkedInURL, &user.LinkedInURL},
	} {
		if v.in != nil {
			fields[col] = *v.in
			*v.dst = *v.in
		}
	}
	if len(fields) > 0 {
		if err := h.store.UpdateUser(c.Request.Context(), user.ID, fields); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"profile": user})
}

type notificationsInput struct {
	EmailNotifications    *bool   `json:"email_notifications"`
	WhatsAppNotifications *bool   `json:"whatsapp_notifications"`
	PushNotifications     *bool   `json:"push_notifications"`
	WeeklyDigest          *bool   `json:"weekly_digest"`
	Timezone              *string `json:"timezone"`
}

func (h *Handler) UpdateNotifications(c *gin.Context) {
	var input notificationsInput
	if !handlers.BindJSON(c, &input) {
		return
	}

	user := handlers.CurrentUser(c)
	ctx := c.Request.Context()
	st, err := h.store.GetSetting(ctx, user.ID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	if input.EmailNotifications != nil {
		st.EmailNotifications = *input.EmailNotifications
	}
	if input.WhatsAppNotifications != nil {
		if *input.WhatsAppNotifications && user.Phone == "" {
			handlers.Fail(c, handlers.Invalid("add a phone number before enabling WhatsApp notifications"))
			return
		}
		st.WhatsAppNotifications = *input.WhatsAppNotifications
	}
	if input.PushNotifications != nil {
		st.PushNotifications = *input.PushNotifications
	}
	if input.WeeklyDigest != nil {
		st.WeeklyDigest = *input.WeeklyDigest
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil || *input.Timezone == "" {
			handlers.Fail(c, handlers.Invalid("unknown timezone"))
			return
		}
		st.Timezone = *input.Timezone
	}

	if err := h.store.SaveSetting(ctx, st); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": st})
}
