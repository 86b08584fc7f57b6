package handler

import (
	"net/http"

	notifService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/service"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service     notifService.NotificationService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

func NewNotificationHandler(service notifService.NotificationService, redisClient *redis.Client, checkOrigin func(*http.Request) bool, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:     service,
		redisClient: redisClient,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.ValidationError(c, err)
		return
	}
	offset := page.Normalize(20)

	notifications, err := h.service.GetNotifications(c.Request.Context(), p.AccountID, page.Limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, notifications)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.Invalid("invalid notification id"))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, p.AccountID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), p.AccountID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "all notifications marked as read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), p.AccountID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"count": count})
}

// HandleWebSocket streams the caller's notifications as they are published.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if h.redisClient == nil {
		response.ResponseError(c, apperror.Unavailable(nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, notifService.Channel(p.AccountID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.Warn("subscribe notifications", zap.Error(err))
		return
	}
	ch := pubsub.Channel()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.log.Debug("websocket write", zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
