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
	"gorm.io/gorm/clause"
)

const (
	minRating = 1
	maxRating = 5
)

type createRatingRequest struct {
	BookingID  string `json:"booking_id" binding:"required,uuid"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

// CreateRatingReview handles POST /api/ratings. A second submission for the
// same booking replaces the first.
func (h *Handler) CreateRatingReview(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	var req createRatingRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Rating < minRating || req.Rating > maxRating {
		apierror.Respond(c, apierror.ValidationError, "rating must be between 1 and 5")
		return
	}

	profile, ok := h.touristProfile(c, p.UserID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var booking models.Booking
	err := h.db.WithContext(ctx).Where("id = ?", req.BookingID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "booking not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load booking", err)
		return
	}
	if booking.TouristID != profile.ID {
		apierror.Respond(c, apierror.Forbidden, "you can only rate your own bookings")
		return
	}
	if booking.Status != models.BookingCompleted && booking.Status != models.BookingPast {
		apierror.Respond(c, apierror.ValidationError, "only completed bookings can be rated")
		return
	}

	review := models.RatingReview{
		BookingID:  booking.ID,
		TouristID:  profile.ID,
		GuideID:    booking.GuideID,
		Rating:     req.Rating,
		ReviewText: strings.TrimSpace(req.ReviewText),
	}
	err = h.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "review_text", "updated_at"}),
	}).Create(&review).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to save rating", err)
		return
	}

	var stored models.RatingReview
	if err := h.db.WithContext(ctx).Where("booking_id = ?", booking.ID).First(&stored).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to load rating", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rating": stored})
}

// DeleteRatingReview handles DELETE /api/ratings/:id. Only the authoring
// tourist or an admin may delete.
func (h *Handler) DeleteRatingReview(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	ratingID, ok := parseID(c, "rating id", c.Param("id"))
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var review models.RatingReview
	err := h.db.WithContext(ctx).Where("id = ?", ratingID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Respond(c, apierror.NotFound, "rating not found")
		return
	}
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load rating", err)
		return
	}

	var author models.TouristProfile
	authorErr := h.db.WithContext(ctx).Where("id = ?", review.TouristID).First(&author).Error
	if authorErr != nil && !errors.Is(authorErr, gorm.ErrRecordNotFound) {
		apierror.Internal(c, h.logger, "failed to load rating author", authorErr)
		return
	}
	isAuthor := authorErr == nil && author.UserID == p.UserID
	if !isAuthor && !p.IsAdmin() {
		apierror.Respond(c, apierror.Forbidden, "you can only delete your own ratings")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&review).Error; err != nil {
		apierror.Internal(c, h.logger, "failed to delete rating", err)
		return
	}

	if !isAuthor && authorErr == nil {
		h.notifier.Send(ctx, author.UserID, notify.Message{
			Type:  notify.TypeReviewDeleted,
			Title: "Review Removed",
			Body:  "One of your reviews was removed by an administrator.",
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetRatingsReviews handles GET /api/ratings?guide_id=.
func (h *Handler) GetRatingsReviews(c *gin.Context) {
	guideID, ok := parseID(c, "guide_id", c.Query("guide_id"))
	if !ok {
		return
	}
	reviews := []models.RatingReview{}
	err := h.db.WithContext(c.Request.Context()).
		Where("guide_id = ?", guideID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load ratings", err)
		return
	}

	average := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		average = float64(sum) / float64(len(reviews))
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"count":          len(reviews),
		"average_rating": average,
	})
}
