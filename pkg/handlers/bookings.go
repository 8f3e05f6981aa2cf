package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tourbook/pkg/apierror"
	"tourbook/pkg/middleware"
	"tourbook/pkg/models"
	"tourbook/pkg/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createBookingRequest struct {
	GuideID     string  `json:"guide_id" binding:"required,uuid"`
	ItineraryID string  `json:"itinerary_id" binding:"omitempty,uuid"`
	BookingDate string  `json:"booking_date" binding:"required"`
	Price       float64 `json:"price" binding:"min=0"`
	GroupSize   int     `json:"group_size" binding:"min=0"`
	Notes       string  `json:"notes"`
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req createBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	bookingDate, err := parseDate(req.BookingDate)
	if err != nil {
		apierror.Respond(c, apierror.InvalidInput, "booking_date must be formatted as YYYY-MM-DD")
		return
	}
	if bookingDate.Before(h.today()) {
		apierror.Respond(c, apierror.ValidationError, "booking_date cannot be in the past")
		return
	}

	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var guide models.Guide
	err = h.db.WithContext(ctx).Where("id = ?", req.GuideID).First(&guide).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !guide.Listed()) {
		apierror.Respond(c, apierror.NotFound, "guide not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load guide", err)
		return
	}

	booking := models.Booking{
		TouristID:   profile.ID,
		GuideID:     guide.ID,
		Status:      models.BookingPending,
		Price:       req.Price,
		BookingDate: bookingDate,
		GroupSize:   req.GroupSize,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if booking.GroupSize == 0 {
		booking.GroupSize = 1
	}

	if req.ItineraryID != "" {
		var itinerary models.GuideItinerary
		err := h.db.WithContext(ctx).Where("id = ? AND guide_id = ?", req.ItineraryID, guide.ID).First(&itinerary).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Respond(c, apierror.ValidationError, "itinerary does not belong to this guide")
			return
		}
		if err != nil {
			apierror.Internal(c, h.logger, "failed to load itinerary", err)
			return
		}
		booking.ItineraryID = &itinerary.ID
		if booking.Price == 0 {
			booking.Price = itinerary.Price
		}
	}

	if err := h.db.WithContext(ctx).Create(&booking).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to create booking", err)
		return
	}

	date := bookingDate.Format(dateLayout)
	h.notifier.Send(ctx, guide.UserID, notify.Message{
		Type:  notify.TypeBookingRequest,
		Title: "New Booking Request",
		Body:  fmt.Sprintf("%s requested a booking for %s.", displayName(profile.Name), date),
	})
	h.notifier.Send(ctx, profile.UserID, notify.Message{
		Type:  notify.TypeBookingRequest,
		Title: "Booking Request Sent",
		Body:  fmt.Sprintf("Your request to book %s for %s has been sent.", guide.Name, date),
	})

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBookingStatus handles PATCH /api/bookings/:id/status. The current
// status is not consulted: any settable status may follow any other.
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	bookingID, ok := parseID(c, "booking id", c.Param("id"))
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	notices, ok := notify.NoticesFor(status)
	if !ok {
		apierror.Respond(c, apierror.ValidationError, "status must be one of accepted, rejected, cancelled, completed")
		return
	}
	ctx := c.Request.Context()

	var booking models.Booking
	err := h.db.WithContext(ctx).Preload("Guide").Preload("Tourist").
		Where("id = ?", bookingID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "booking not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load booking", err)
		return
	}

	isGuide := booking.Guide != nil && booking.Guide.UserID == p.UserID
	isTourist := booking.Tourist != nil && booking.Tourist.UserID == p.UserID
	if !p.IsAdmin() && !isGuide && !isTourist {
		apierror.Respond(c, apierror.Forbidden, "you are not allowed to update this booking")
		return
	}

	err = h.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Update("status", status).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to update booking", err)
		return
	}
	booking.Status = status

	var warnings []string
	if status == models.BookingCompleted {
		if err := models.IncrementTripsCompleted(h.db.WithContext(ctx), booking.GuideID); err != nil {
			h.logger.Warn("Failed to increment trips completed",
				slog.String("guide_id", booking.GuideID),
				slog.String("error", err.Error()))
			warnings = append(warnings, "trip counter was not updated")
		}
	}

	if notices.Tourist != nil && booking.Tourist != nil {
		h.notifier.Send(ctx, booking.Tourist.UserID, *notices.Tourist)
	}
	if notices.Guide != nil && booking.Guide != nil {
		h.notifier.Send(ctx, booking.Guide.UserID, *notices.Guide)
	}
	if notices.Admins != nil {
		h.notifier.SendToAdmins(ctx, *notices.Admins)
	}

	booking.Guide = nil
	booking.Tourist = nil
	response := gin.H{"booking": booking}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	c.JSON(http.StatusOK, response)
}

type bookingFilter struct {
	Status string `json:"status"`
}

// GetTouristBookings handles GET and POST /api/bookings/tourist. The status
// filter comes from the query string or, for POST, the JSON body.
func (h *Handler) GetTouristBookings(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	filter := bookingFilter{Status: c.Query("status")}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if !bindJSON(c, &filter) {
			return
		}
	}

	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Preload("Guide").Preload("Itinerary").
		Where("tourist_id = ?", profile.ID)
	if filter.Status != "" {
		query = query.Where("status = ?", strings.ToLower(filter.Status))
	}
	bookings := []models.Booking{}
	if err := query.Order("created_at DESC").Find(&bookings).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to load bookings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetAdminBookings handles GET /api/admin/bookings?status=&page=&size=.
func (h *Handler) GetAdminBookings(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}

	status := strings.ToLower(c.Query("status"))
	scoped := func() *gorm.DB {
		query := h.db.WithContext(c.Request.Context()).Model(&models.Booking{})
		if status != "" {
			query = query.Where("status = ?", status)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to count bookings", err)
		return
	}

	bookings := []models.Booking{}
	err = scoped().Preload("Guide").Preload("Tourist").Preload("Itinerary").
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&bookings).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load bookings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": total,
		"items":         bookings,
	})
}

// GetGuideConfirmedBookings handles GET /api/guide/bookings/confirmed.
func (h *Handler) GetGuideConfirmedBookings(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	guide, ok := h.guideProfile(c, p.UserID)
	if !ok {
		return
	}
	bookings := []models.Booking{}
	err := h.db.WithContext(c.Request.Context()).
		Preload("Tourist").Preload("Itinerary").
		Where("guide_id = ? AND status = ?", guide.ID, models.BookingAccepted).
		Order("booking_date ASC").
		Find(&bookings).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load bookings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
