// Package notify writes in-app notifications. Every send is best-effort: a
// failure is logged and counted but never surfaces to the request that caused
// it, and nothing is retried.
package notify

import (
	"context"
	"log/slog"

	"tourbook/pkg/metrics"
	"tourbook/pkg/models"

	"gorm.io/gorm"
)

const (
	TypeBookingRequest   = "booking_request"
	TypeBookingAccepted  = "booking_accepted"
	TypeBookingRejected  = "booking_rejected"
	TypeBookingCancelled = "booking_cancelled"
	TypeBookingCompleted = "booking_completed"
	TypeGuideSaved       = "guide_saved"
	TypeGuideUnsaved     = "guide_unsaved"
	TypeReviewDeleted    = "review_deleted"
	TypeGuideStatus      = "guide_status"
	TypeSystem           = "system"
)

type Message struct {
	Type  string
	Title string
	Body  string
}

type Dispatcher struct {
	db     *gorm.DB
	mailer Mailer
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher; mailer may be nil to disable email.
func NewDispatcher(db *gorm.DB, mailer Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{db: db, mailer: mailer, logger: logger}
}

// Send stores one notification for userID and reports whether it was stored.
func (d *Dispatcher) Send(ctx context.Context, userID string, msg Message) bool {
	n := models.Notification{
		UserID:  userID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Body,
	}
	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		metrics.NotificationsSent.WithLabelValues(msg.Type, "failed").Inc()
		d.logger.Warn("Failed to send notification",
			slog.String("user_id", userID),
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return false
	}
	metrics.NotificationsSent.WithLabelValues(msg.Type, "sent").Inc()
	d.mirrorEmail(userID, msg)
	return true
}

// SendToAdmins fans msg out to every admin user and returns how many were stored.
func (d *Dispatcher) SendToAdmins(ctx context.Context, msg Message) int {
	var adminIDs []string
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &adminIDs).Error
	if err != nil {
		d.logger.Warn("Failed to load admins for notification",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return 0
	}
	sent := 0
	for _, id := range adminIDs {
		if d.Send(ctx, id, msg) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) mirrorEmail(userID string, msg Message) {
	if d.mailer == nil {
		return
	}
	var user models.User
	if err := d.db.Select("email").Where("id = ?", userID).First(&user).Error; err != nil || user.Email == "" {
		return
	}
	go func() {
		if err := d.mailer.Send(user.Email, msg.Title, msg.Body); err != nil {
			d.logger.Warn("Failed to email notification",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}()
}
