package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"tourbook/pkg/apierror"
	"tourbook/pkg/middleware"
	"tourbook/pkg/models"
	"tourbook/pkg/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type saveGuideRequest struct {
	GuideID string `json:"guide_id" binding:"required,uuid"`
}

func displayName(name string) string {
	if name == "" {
		return "A tourist"
	}
	return name
}

// SaveGuide handles POST /api/saved-guides.
func (h *Handler) SaveGuide(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req saveGuideRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var guide models.Guide
	err := h.db.WithContext(ctx).Where("id = ?", req.GuideID).First(&guide).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "guide not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load guide", err)
		return
	}

	var existing int64
	err = h.db.WithContext(ctx).Model(&models.SavedGuide{}).
		Where("tourist_id = ? AND guide_id = ?", profile.ID, guide.ID).
		Count(&existing).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to check saved guides", err)
		return
	}
	if existing > 0 {
		apierror.Respond(c, apierror.Conflict, "guide already saved")
		return
	}

	saved := models.SavedGuide{TouristID: profile.ID, GuideID: guide.ID}
	if err := h.db.WithContext(ctx).Create(&saved).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			apierror.Respond(c, apierror.Conflict, "guide already saved")
			return
		}
		apierror.Internal(c, h.logger, "failed to save guide", err)
		return
	}

	h.notifier.Send(ctx, guide.UserID, notify.Message{
		Type:  notify.TypeGuideSaved,
		Title: "Profile Saved",
		Body:  fmt.Sprintf("%s added you to their saved guides.", displayName(profile.Name)),
	})

	c.JSON(http.StatusCreated, gin.H{"saved_guide": saved})
}

// UnsaveGuide handles DELETE /api/saved-guides/:guideId.
func (h *Handler) UnsaveGuide(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	guideID, ok := parseID(c, "guide id", c.Param("guideId"))
	if !ok {
		return
	}
	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := h.db.WithContext(ctx).
		Where("tourist_id = ? AND guide_id = ?", profile.ID, guideID).
		Delete(&models.SavedGuide{})
	if result.Error != nil {
		apierror.Internal(c, h.logger, "failed to unsave guide", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		apierror.Respond(c, apierror.NotFound, "guide is not saved")
		return
	}

	var guide models.Guide
	if err := h.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", guideID).First(&guide).Error; err == nil {
		h.notifier.Send(ctx, guide.UserID, notify.Message{
			Type:  notify.TypeGuideUnsaved,
			Title: "Profile Removed From Saved",
			Body:  fmt.Sprintf("%s removed you from their saved guides.", displayName(profile.Name)),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSavedGuides handles GET /api/saved-guides.
func (h *Handler) ListSavedGuides(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}
	saved := []models.SavedGuide{}
	err := h.db.WithContext(c.Request.Context()).Preload("Guide").
		Where("tourist_id = ?", profile.ID).
		Order("created_at DESC").
		Find(&saved).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load saved guides", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_guides": saved})
}
