package notifications

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

type Store interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error
}

// Stream serves the live event feed for an authenticated user.
type Stream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

type Handler struct {
	store  Store
	stream Stream
	now    func() time.Time
}

func New(store Store, stream Stream) *Handler {
	return &Handler{store: store, stream: stream, now: time.Now}
}

func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	onboarded := auth.RequireRole(models.Roles...)
	g := api.Group("/notifications", authenticated, onboarded)
	g.GET("", h.List)
	g.POST("/read-all", h.ReadAll)
	g.POST("/push-token", h.PushToken)
	g.POST("/:id/read", h.Read)

	api.GET("/realtime", authenticated, onboarded, h.Realtime)
}

func (h *Handler) List(c *gin.Context) {
	user := handlers.CurrentUser(c)
	unread := c.Query("unread") == "true"
	out, err := h.store.ListNotifications(c.Request.Context(), user.ID, unread, handlers.QueryInt(c, "limit", 50))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if out == nil {
		out = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *Handler) Read(c *gin.Context) {
	user := handlers.CurrentUser(c)
	if err := h.store.MarkNotificationRead(c.Request.Context(), c.Param("id"), user.ID, h.now()); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) ReadAll(c *gin.Context) {
	user := handlers.CurrentUser(c)
	n, err := h.store.MarkAllNotificationsRead(c.Request.Context(), user.ID, h.now())
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// PushToken registers the device token used for mobile push delivery.
func (h *Handler) PushToken(c *gin.Context) {
	var req pushTokenRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		handlers.Fail(c, handlers.Invalid("token is required"))
		return
	}

	user := handlers.CurrentUser(c)
	if err := h.store.UpdateUser(c.Request.Context(), user.ID, map[string]interface{}{"push_token": token}); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push token saved"})
}

func (h *Handler) Realtime(c *gin.Context) {
	h.stream.Serve(c.Writer, c.Request, handlers.CurrentUser(c).ID)
}
