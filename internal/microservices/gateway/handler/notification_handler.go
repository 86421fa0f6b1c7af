package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/microservices/gateway/dto"
	"taskhub/internal/microservices/gateway/facade"
	"taskhub/internal/microservices/gateway/middleware"
)

type NotificationHandler struct {
	notifications *facade.NotificationsClient
}

func NewNotificationHandler(notifications *facade.NotificationsClient) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	var query dto.ListNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"userId": middleware.UserID(c),
		"page":   query.Page,
		"size":   query.Size,
		"read":   query.Read,
	}
	reply, err := h.notifications.Find(c.Request.Context(), payload)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *NotificationHandler) CountUnread(c *gin.Context) {
	reply, err := h.notifications.CountUnread(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkAsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"userId":          middleware.UserID(c),
		"notificationIds": req.NotificationIDs,
	}
	reply, err := h.notifications.MarkAsRead(c.Request.Context(), payload)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}
