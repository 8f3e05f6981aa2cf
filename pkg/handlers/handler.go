package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tourbook/pkg/apierror"
	"tourbook/pkg/middleware"
	"tourbook/pkg/models"
	"tourbook/pkg/notify"
	"tourbook/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Identities is the slice of the auth service the handlers depend on.
type Identities interface {
	middleware.TokenVerifier
	DeleteUser(ctx context.Context, userID string) error
}

type Handler struct {
	db         *gorm.DB
	identities Identities
	notifier   *notify.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func New(db *gorm.DB, identities Identities, notifier *notify.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{
		db:         db,
		identities: identities,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

type RouteOptions struct {
	Limiter           ratelimit.Limiter
	BackendConfigured bool
}

func (h *Handler) RegisterRoutes(r *gin.Engine, opts RouteOptions) {
	r.GET("/manage/health", h.HealthCheck)

	limit := func(scope string) gin.HandlerFunc {
		return ratelimit.Middleware(opts.Limiter, scope, h.logger)
	}
	tourist := middleware.RequireRole(models.RoleTourist)
	guide := middleware.RequireRole(models.RoleGuide)
	admin := middleware.RequireRole(models.RoleAdmin)

	api := r.Group("/api", middleware.RequireBackend(opts.BackendConfigured))
	api.GET("/guides/search", h.SearchGuides)
	api.GET("/languages", h.GetLanguages)
	api.GET("/ratings", h.GetRatingsReviews)
	api.GET("/availability", h.ListAvailability)
	api.GET("/itineraries", h.ListItineraries)

	auth := api.Group("", middleware.RequireAuth(h.identities, h.db, h.logger))
	auth.POST("/bookings", tourist, limit("create-booking"), h.CreateBooking)
	auth.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
	auth.GET("/bookings/tourist", tourist, h.GetTouristBookings)
	auth.POST("/bookings/tourist", tourist, h.GetTouristBookings)

	auth.GET("/admin/bookings", admin, h.GetAdminBookings)
	auth.PATCH("/admin/guides/:id/status", admin, h.UpdateGuideStatus)

	auth.GET("/guide/bookings/confirmed", guide, h.GetGuideConfirmedBookings)
	auth.POST("/guide/availability", guide, h.CreateAvailability)
	auth.POST("/guide/itineraries", guide, h.CreateItinerary)

	auth.GET("/saved-guides", tourist, h.ListSavedGuides)
	auth.POST("/saved-guides", tourist, h.SaveGuide)
	auth.DELETE("/saved-guides/:guideId", tourist, h.UnsaveGuide)

	auth.POST("/ratings", tourist, limit("create-rating"), h.CreateRatingReview)
	auth.DELETE("/ratings/:id", h.DeleteRatingReview)

	auth.GET("/notifications", h.ListNotifications)
	auth.POST("/notifications", limit("create-notification"), h.CreateNotification)
	auth.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	auth.PUT("/notifications/:id/read", h.MarkNotificationRead)
	auth.DELETE("/notifications/:id", h.DeleteNotification)

	auth.POST("/account/delete", limit("delete-account"), h.DeleteAccount)
}

// bindJSON answers 400 on a malformed body: VALIDATION_ERROR when a binding
// rule failed, INVALID_INPUT when the JSON itself is unreadable.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		apierror.Respond(c, apierror.ValidationError, "invalid or missing fields: "+strings.Join(fields, ", "))
		return false
	}
	apierror.Respond(c, apierror.InvalidInput, "invalid request body")
	return false
}

// parseID checks a path or query id before it reaches a uuid column and
// returns it in canonical form.
func parseID(c *gin.Context, field, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		apierror.Respond(c, apierror.InvalidInput, field+" is required")
		return "", false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		apierror.Respond(c, apierror.InvalidInput, field+" must be a valid id")
		return "", false
	}
	return id.String(), true
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
}

func (h *Handler) today() time.Time {
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handler) touristProfile(c *gin.Context, userID string) (*models.TouristProfile, bool) {
	var profile models.TouristProfile
	err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "tourist profile not found")
		return nil, false
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load tourist profile", err)
		return nil, false
	}
	return &profile, true
}

func (h *Handler) guideProfile(c *gin.Context, userID string) (*models.Guide, bool) {
	var guide models.Guide
	err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&guide).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "guide profile not found")
		return nil, false
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load guide profile", err)
		return nil, false
	}
	return &guide, true
}
