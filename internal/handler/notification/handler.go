package notification

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitalapp/clinic-api/internal/handler"
	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/service/notification"
	"github.com/vitalapp/clinic-api/pkg/httputil"
)

// StreamPath is the SSE route, excluded from the request timeout.
const StreamPath = "/api/v1/notifications/stream"

const heartbeatInterval = 25 * time.Second

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.CreateNotification)
		notifications.GET("", h.ListNotifications)
		notifications.GET("/mine", h.ListMine)
		notifications.GET("/mine/count", h.CountMine)
		notifications.PATCH("/mine/read-all", h.MarkAllMine)
		notifications.GET("/stream", h.Stream)
		notifications.GET("/recipient/:recipientId", h.ListByRecipient)
		notifications.GET("/recipient/:recipientId/unread", h.ListUnread)
		notifications.GET("/recipient/:recipientId/count", h.CountUnread)
		notifications.GET("/:id", h.GetNotification)
		notifications.PUT("/:id", h.UpdateNotification)
		notifications.PATCH("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req model.CreateNotificationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	n, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, n)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	h.respondList(c, func() ([]*model.Notification, error) {
		return h.service.List(c.Request.Context())
	})
}

func (h *Handler) ListMine(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}
	h.respondList(c, func() ([]*model.Notification, error) {
		return h.service.ListMine(c.Request.Context(), principal)
	})
}

func (h *Handler) CountMine(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}

	n, err := h.service.CountMine(c.Request.Context(), principal)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.UnreadCount{Count: n})
}

func (h *Handler) MarkAllMine(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}

	n, err := h.service.MarkAllMine(c.Request.Context(), principal)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": n})
}

func (h *Handler) ListByRecipient(c *gin.Context) {
	id, ok := handler.ParseID(c, "recipientId")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*model.Notification, error) {
		return h.service.ListByRecipient(c.Request.Context(), id)
	})
}

func (h *Handler) ListUnread(c *gin.Context) {
	id, ok := handler.ParseID(c, "recipientId")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*model.Notification, error) {
		return h.service.ListUnread(c.Request.Context(), id)
	})
}

func (h *Handler) CountUnread(c *gin.Context) {
	id, ok := handler.ParseID(c, "recipientId")
	if !ok {
		return
	}

	n, err := h.service.CountUnread(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.UnreadCount{Count: n})
}

func (h *Handler) respondList(c *gin.Context, list func() ([]*model.Notification, error)) {
	out, err := list()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) GetNotification(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) UpdateNotification(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateNotificationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	n, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	n, err := h.service.MarkRead(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondNoContent(c)
}

// Stream pushes the caller's notifications as server-sent events until the
// client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	msgs, err := h.service.Subscribe(ctx, principal)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent("notification", string(msg))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
