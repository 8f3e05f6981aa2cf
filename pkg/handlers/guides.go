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

type updateGuideStatusRequest struct {
	Status        string `json:"status" binding:"omitempty,oneof=pending approved rejected"`
	IsDeactivated *bool  `json:"is_deactivated"`
}

// UpdateGuideStatus handles PATCH /api/admin/guides/:id/status.
func (h *Handler) UpdateGuideStatus(c *gin.Context) {
	guideID, ok := parseID(c, "guide id", c.Param("id"))
	if !ok {
		return
	}
	var req updateGuideStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Status == "" && req.IsDeactivated == nil {
		apierror.Respond(c, apierror.ValidationError, "status or is_deactivated is required")
		return
	}
	ctx := c.Request.Context()

	var guide models.Guide
	err := h.db.WithContext(ctx).Where("id = ?", guideID).First(&guide).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "guide not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load guide", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Status != "" {
		updates["status"] = req.Status
		guide.Status = req.Status
	}
	if req.IsDeactivated != nil {
		updates["is_deactivated"] = *req.IsDeactivated
		guide.IsDeactivated = *req.IsDeactivated
	}
	if err := h.db.WithContext(ctx).Model(&models.Guide{}).Where("id = ?", guide.ID).Updates(updates).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to update guide", err)
		return
	}

	h.notifier.Send(ctx, guide.UserID, guideStatusMessage(&guide))
	c.JSON(http.StatusOK, gin.H{"guide": guide})
}

func guideStatusMessage(g *models.Guide) notify.Message {
	msg := notify.Message{Type: notify.TypeGuideStatus, Title: "Profile Updated"}
	switch {
	case g.IsDeactivated:
		msg.Body = "Your guide profile has been deactivated and is hidden from search."
	case g.Status == models.GuideStatusApproved:
		msg.Title = "Profile Approved"
		msg.Body = "Your guide profile is approved and visible to tourists."
	case g.Status == models.GuideStatusRejected:
		msg.Title = "Profile Rejected"
		msg.Body = "Your guide application was not approved."
	default:
		msg.Body = "Your guide profile is pending review."
	}
	return msg
}

type createAvailabilityRequest struct {
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	IsAvailable *bool  `json:"is_available"`
}

// CreateAvailability handles POST /api/guide/availability.
func (h *Handler) CreateAvailability(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req createAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		apierror.Respond(c, apierror.InvalidInput, "start_date must be formatted as YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		apierror.Respond(c, apierror.InvalidInput, "end_date must be formatted as YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		apierror.Respond(c, apierror.ValidationError, "end_date cannot be before start_date")
		return
	}

	guide, ok := h.guideProfile(c, p.UserID)
	if !ok {
		return
	}
	window := models.GuideAvailability{
		GuideID:     guide.ID,
		StartDate:   start,
		EndDate:     end,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&window).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to save availability", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"availability": window})
}

// ListAvailability handles GET /api/availability?guide_id=.
func (h *Handler) ListAvailability(c *gin.Context) {
	guideID, ok := parseID(c, "guide_id", c.Query("guide_id"))
	if !ok {
		return
	}
	windows := []models.GuideAvailability{}
	err := h.db.WithContext(c.Request.Context()).
		Where("guide_id = ?", guideID).
		Order("start_date ASC").
		Find(&windows).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": windows})
}

type createItineraryRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	PlacesToVisit []string `json:"places_to_visit"`
	DurationHours int      `json:"duration_hours" binding:"min=0"`
	Price         float64  `json:"price" binding:"min=0"`
}

// CreateItinerary handles POST /api/guide/itineraries.
func (h *Handler) CreateItinerary(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req createItineraryRequest
	if !bindJSON(c, &req) {
		return
	}
	guide, ok := h.guideProfile(c, p.UserID)
	if !ok {
		return
	}
	places := req.PlacesToVisit
	if places == nil {
		places = []string{}
	}
	itinerary := models.GuideItinerary{
		GuideID:       guide.ID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		PlacesToVisit: places,
		DurationHours: req.DurationHours,
		Price:         req.Price,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&itinerary).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to save itinerary", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"itinerary": itinerary})
}

// ListItineraries handles GET /api/itineraries?guide_id=.
func (h *Handler) ListItineraries(c *gin.Context) {
	guideID, ok := parseID(c, "guide_id", c.Query("guide_id"))
	if !ok {
		return
	}
	itineraries := []models.GuideItinerary{}
	err := h.db.WithContext(c.Request.Context()).
		Where("guide_id = ?", guideID).
		Order("created_at DESC").
		Find(&itineraries).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load itineraries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"itineraries": itineraries})
}
