package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tourbook/pkg/apierror"
	"tourbook/pkg/middleware"
	"tourbook/pkg/models"
	"tourbook/pkg/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const notificationsLimit = 100

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	ctx := c.Request.Context()

	query := h.db.WithContext(ctx).Where("user_id = ?", p.UserID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}
	items := []models.Notification{}
	if err := query.Order("created_at DESC").Limit(notificationsLimit).Find(&items).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to load notifications", err)
		return
	}

	var unread int64
	err := h.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.UserID, false).
		Count(&unread).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to count notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "unread_count": unread})
}

type createNotificationRequest struct {
	UserID  string `json:"user_id" binding:"omitempty,uuid"`
	Type    string `json:"type"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message"`
}

// CreateNotification handles POST /api/notifications. Callers write to their
// own feed; admins may target any user.
func (h *Handler) CreateNotification(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req createNotificationRequest
	if !bindJSON(c, &req) {
		return
	}
	target := strings.TrimSpace(req.UserID)
	if target == "" {
		target = p.UserID
	}
	if target != p.UserID && !p.IsAdmin() {
		apierror.Respond(c, apierror.Forbidden, "you can only create notifications for yourself")
		return
	}
	ctx := c.Request.Context()

	var user models.User
	err := h.db.WithContext(ctx).Where("id = ?", target).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "user not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load user", err)
		return
	}

	n := models.Notification{
		UserID:  target,
		Type:    req.Type,
		Title:   strings.TrimSpace(req.Title),
		Message: req.Message,
	}
	if n.Type == "" {
		n.Type = notify.TypeSystem
	}
	if err := h.db.WithContext(ctx).Create(&n).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to create notification", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notification": n})
}

// ownNotification loads a notification and checks the caller owns it.
func (h *Handler) ownNotification(c *gin.Context) (*models.Notification, bool) {
	p := middleware.CurrentPrincipal(c)
	id, ok := parseID(c, "notification id", c.Param("id"))
	if !ok {
		return nil, false
	}
	var n models.Notification
	err := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "notification not found")
		return nil, false
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load notification", err)
		return nil, false
	}
	if n.UserID != p.UserID {
		apierror.Respond(c, apierror.Forbidden, "notification belongs to another user")
		return nil, false
	}
	return &n, true
}

// MarkNotificationRead handles PUT /api/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	n, ok := h.ownNotification(c)
	if !ok {
		return
	}
	err := h.db.WithContext(c.Request.Context()).Model(n).Update("is_read", true).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to update notification", err)
		return
	}
	n.IsRead = true
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	res := h.db.WithContext(c.Request.Context()).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.UserID, false).
		Update("is_read", true)
	if res.Error != nil {
		apierror.Internal(c, h.logger, "failed to update notifications", res.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

// DeleteNotification handles DELETE /api/notifications/:id.
func (h *Handler) DeleteNotification(c *gin.Context) {
	n, ok := h.ownNotification(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Delete(n).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to delete notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
