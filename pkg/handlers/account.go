package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tourbook/pkg/apierror"
	"tourbook/pkg/middleware"
	"tourbook/pkg/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type cleanupStep struct {
	name string
	run  func(tx *gorm.DB) error
}

func deleteWhere(model interface{}, query string, args ...interface{}) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.Where(query, args...).Delete(model).Error
	}
}

// DeleteAccount handles POST /api/account/delete. Rows owned by the caller are
// removed step by step; a failed step becomes a warning. Only the final
// identity deletion can fail the request.
func (h *Handler) DeleteAccount(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	ctx := c.Request.Context()

	steps, err := h.cleanupSteps(ctx, p)
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load account", err)
		return
	}

	warnings := []string{}
	for _, step := range steps {
		if err := step.run(h.db.WithContext(ctx)); err != nil {
			h.logger.Warn("Account cleanup step failed",
				slog.String("user_id", p.UserID),
				slog.String("step", step.name),
				slog.String("error", err.Error()))
			warnings = append(warnings, "failed to delete "+step.name)
		}
	}

	if err := h.identities.DeleteUser(ctx, p.UserID); err != nil {
		apierror.Internal(c, h.logger, "failed to delete auth account", err)
		return
	}
	h.logger.Info("Account deleted",
		slog.String("user_id", p.UserID),
		slog.String("role", p.Role),
		slog.Int("warnings", len(warnings)))
	c.JSON(http.StatusOK, gin.H{"success": true, "warnings": warnings})
}

// cleanupSteps lists deletes children first: bookings reference itineraries,
// and bookings and saved guides reference the guide row.
func (h *Handler) cleanupSteps(ctx context.Context, p *middleware.Principal) ([]cleanupStep, error) {
	var steps []cleanupStep

	switch p.Role {
	case models.RoleGuide:
		var guide models.Guide
		err := h.db.WithContext(ctx).Where("user_id = ?", p.UserID).First(&guide).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			steps = append(steps,
				cleanupStep{"ratings", deleteWhere(&models.RatingReview{}, "guide_id = ?", guide.ID)},
				cleanupStep{"bookings", deleteWhere(&models.Booking{}, "guide_id = ?", guide.ID)},
				cleanupStep{"saved guides", deleteWhere(&models.SavedGuide{}, "guide_id = ?", guide.ID)},
				cleanupStep{"availability", deleteWhere(&models.GuideAvailability{}, "guide_id = ?", guide.ID)},
				cleanupStep{"itineraries", deleteWhere(&models.GuideItinerary{}, "guide_id = ?", guide.ID)},
				cleanupStep{"guide profile", deleteWhere(&models.Guide{}, "id = ?", guide.ID)},
			)
		}
	case models.RoleTourist:
		var profile models.TouristProfile
		err := h.db.WithContext(ctx).Where("user_id = ?", p.UserID).First(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			steps = append(steps,
				cleanupStep{"ratings", deleteWhere(&models.RatingReview{}, "tourist_id = ?", profile.ID)},
				cleanupStep{"saved guides", deleteWhere(&models.SavedGuide{}, "tourist_id = ?", profile.ID)},
				cleanupStep{"bookings", deleteWhere(&models.Booking{}, "tourist_id = ?", profile.ID)},
				cleanupStep{"tourist profile", deleteWhere(&models.TouristProfile{}, "id = ?", profile.ID)},
			)
		}
	}

	steps = append(steps,
		cleanupStep{"notifications", deleteWhere(&models.Notification{}, "user_id = ?", p.UserID)},
		cleanupStep{"user", deleteWhere(&models.User{}, "id = ?", p.UserID)},
	)
	return steps, nil
}
