package handlers

import (
	"net/http"
	"sync"
	"testing"

	"tourbook/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do("POST", "/api/bookings", touristToken, gin.H{
		"guide_id":     env.guide.ID,
		"booking_date": "2024-06-20",
		"price":        150,
		"group_size":   3,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode(t, w)["booking"].(map[string]interface{})
	assert.Equal(t, models.BookingPending, booking["status"])
	assert.Equal(t, float64(3), booking["group_size"])

	assert.Equal(t, int64(1), env.notificationCount(guideUserID))
	assert.Equal(t, int64(1), env.notificationCount(touristUserID))
	var n models.Notification
	env.db.Where("user_id = ?", guideUserID).First(&n)
	assert.Equal(t, "New Booking Request", n.Title)
}

func TestCreateBookingUsesItineraryPrice(t *testing.T) {
	env := setupTestEnv(t)
	it := &models.GuideItinerary{GuideID: env.guide.ID, Title: "Old Bombay walk", Price: 80}
	require.NoError(t, env.db.Create(it).Error)

	w := env.do("POST", "/api/bookings", touristToken, gin.H{
		"guide_id":     env.guide.ID,
		"itinerary_id": it.ID,
		"booking_date": "2024-06-20",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode(t, w)["booking"].(map[string]interface{})
	assert.Equal(t, float64(80), booking["price"])
	assert.Equal(t, float64(1), booking["group_size"])
}

func TestCreateBookingRejections(t *testing.T) {
	env := setupTestEnv(t)
	hidden := env.addGuide(t, "guide-2", "Hidden", models.GuideStatusApproved, true, "Pune")
	foreign := &models.GuideItinerary{GuideID: hidden.ID, Title: "Elsewhere"}
	require.NoError(t, env.db.Create(foreign).Error)

	tests := []struct {
		name   string
		token  string
		body   gin.H
		status int
		code   string
	}{
		{"deactivated guide", touristToken, gin.H{"guide_id": hidden.ID, "booking_date": "2024-06-20"}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown guide", touristToken, gin.H{"guide_id": uuid.NewString(), "booking_date": "2024-06-20"}, http.StatusNotFound, "NOT_FOUND"},
		{"malformed guide id", touristToken, gin.H{"guide_id": "nope", "booking_date": "2024-06-20"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed itinerary id", touristToken, gin.H{"guide_id": env.guide.ID, "itinerary_id": "abc", "booking_date": "2024-06-20"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"past date", touristToken, gin.H{"guide_id": env.guide.ID, "booking_date": "2024-06-09"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad date", touristToken, gin.H{"guide_id": env.guide.ID, "booking_date": "20/06/2024"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing guide", touristToken, gin.H{"booking_date": "2024-06-20"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"foreign itinerary", touristToken, gin.H{"guide_id": env.guide.ID, "itinerary_id": foreign.ID, "booking_date": "2024-06-20"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"guide role", guideToken, gin.H{"guide_id": env.guide.ID, "booking_date": "2024-06-20"}, http.StatusForbidden, "FORBIDDEN"},
		{"no token", "", gin.H{"guide_id": env.guide.ID, "booking_date": "2024-06-20"}, http.StatusUnauthorized, "MISSING_AUTH"},
		{"bad token", "forged", gin.H{"guide_id": env.guide.ID, "booking_date": "2024-06-20"}, http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", "/api/bookings", tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}

	var count int64
	env.db.Model(&models.Booking{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateBookingRateLimited(t *testing.T) {
	env := setupTestEnvWithLimit(t, 2)
	body := gin.H{"guide_id": env.guide.ID, "booking_date": "2024-06-20"}

	assert.Equal(t, http.StatusCreated, env.do("POST", "/api/bookings", touristToken, body).Code)
	assert.Equal(t, http.StatusCreated, env.do("POST", "/api/bookings", touristToken, body).Code)

	w := env.do("POST", "/api/bookings", touristToken, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])
}

func TestUpdateBookingStatusCompletedIncrementsTrips(t *testing.T) {
	env := setupTestEnv(t)
	booking := env.addBooking(t, env.tourist, models.BookingAccepted)

	w := env.do("PATCH", "/api/bookings/"+booking.ID+"/status", guideToken, gin.H{"status": "completed"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, models.BookingCompleted, body["booking"].(map[string]interface{})["status"])
	assert.Nil(t, body["warnings"])

	var guide models.Guide
	env.db.First(&guide, "id = ?", env.guide.ID)
	assert.Equal(t, 1, guide.TripsCompleted)

	assert.Equal(t, int64(1), env.notificationCount(touristUserID))
	assert.Equal(t, int64(1), env.notificationCount(guideUserID))
	assert.Equal(t, int64(1), env.notificationCount(adminUserID))
}

func TestUpdateBookingStatusConcurrentCompletions(t *testing.T) {
	env := setupTestEnv(t)
	bookings := []*models.Booking{
		env.addBooking(t, env.tourist, models.BookingAccepted),
		env.addBooking(t, env.stranger, models.BookingAccepted),
	}

	codes := make([]int, len(bookings))
	var wg sync.WaitGroup
	for i, b := range bookings {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			w := env.do("PATCH", "/api/bookings/"+id+"/status", guideToken, gin.H{"status": "completed"})
			codes[i] = w.Code
		}(i, b.ID)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	var guide models.Guide
	require.NoError(t, env.db.First(&guide, "id = ?", env.guide.ID).Error)
	assert.Equal(t, 2, guide.TripsCompleted)
}

func TestUpdateBookingStatusNotificationFanOut(t *testing.T) {
	tests := []struct {
		status  string
		tourist int64
		guide   int64
		admin   int64
	}{
		{models.BookingAccepted, 1, 0, 0},
		{models.BookingRejected, 1, 0, 0},
		{models.BookingCancelled, 1, 1, 1},
		{models.BookingCompleted, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			env := setupTestEnv(t)
			booking := env.addBooking(t, env.tourist, models.BookingPending)

			w := env.do("PATCH", "/api/bookings/"+booking.ID+"/status", adminToken, gin.H{"status": tt.status})

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.tourist, env.notificationCount(touristUserID))
			assert.Equal(t, tt.guide, env.notificationCount(guideUserID))
			assert.Equal(t, tt.admin, env.notificationCount(adminUserID))
		})
	}
}

func TestUpdateBookingStatusIgnoresCurrentStatus(t *testing.T) {
	env := setupTestEnv(t)
	booking := env.addBooking(t, env.tourist, models.BookingCompleted)

	w := env.do("PATCH", "/api/bookings/"+booking.ID+"/status", touristToken, gin.H{"status": "accepted"})

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.Booking
	env.db.First(&got, "id = ?", booking.ID)
	assert.Equal(t, models.BookingAccepted, got.Status)
}

func TestUpdateBookingStatusRejections(t *testing.T) {
	env := setupTestEnv(t)
	booking := env.addBooking(t, env.tourist, models.BookingPending)
	path := "/api/bookings/" + booking.ID + "/status"

	w := env.do("PATCH", path, strangerToken, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("PATCH", path, guideToken, gin.H{"status": "past"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = env.do("PATCH", path, guideToken, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("PATCH", "/api/bookings/"+uuid.NewString()+"/status", guideToken, gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var got models.Booking
	env.db.First(&got, "id = ?", booking.ID)
	assert.Equal(t, models.BookingPending, got.Status)
	assert.Equal(t, int64(0), env.notificationCount(touristUserID))
}

func TestGetTouristBookings(t *testing.T) {
	env := setupTestEnv(t)
	env.addBooking(t, env.tourist, models.BookingPending)
	env.addBooking(t, env.tourist, models.BookingAccepted)
	env.addBooking(t, env.stranger, models.BookingPending)

	w := env.do("GET", "/api/bookings/tourist", touristToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bookings := decode(t, w)["bookings"].([]interface{})
	assert.Len(t, bookings, 2)
	first := bookings[0].(map[string]interface{})
	assert.Equal(t, "Asha Rao", first["guide"].(map[string]interface{})["name"])

	w = env.do("POST", "/api/bookings/tourist", touristToken, gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bookings"].([]interface{}), 1)

	w = env.do("GET", "/api/bookings/tourist?status=accepted", touristToken, nil)
	assert.Len(t, decode(t, w)["bookings"].([]interface{}), 1)
}

func TestGetAdminBookingsPaginates(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 5; i++ {
		env.addBooking(t, env.tourist, models.BookingPending)
	}
	env.addBooking(t, env.tourist, models.BookingAccepted)

	w := env.do("GET", "/api/admin/bookings?page=2&size=2", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(6), body["totalElements"])
	assert.Equal(t, float64(2), body["page"])
	assert.Len(t, body["items"].([]interface{}), 2)

	w = env.do("GET", "/api/admin/bookings?status=accepted", adminToken, nil)
	body = decode(t, w)
	assert.Equal(t, float64(1), body["totalElements"])
	assert.Equal(t, float64(20), body["pageSize"])

	w = env.do("GET", "/api/admin/bookings", touristToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetGuideConfirmedBookings(t *testing.T) {
	env := setupTestEnv(t)
	env.addBooking(t, env.tourist, models.BookingAccepted)
	env.addBooking(t, env.tourist, models.BookingPending)

	w := env.do("GET", "/api/guide/bookings/confirmed", guideToken, nil)

	require.Equal(t, http.StatusOK, w.Code)
	bookings := decode(t, w)["bookings"].([]interface{})
	require.Len(t, bookings, 1)
	tourist := bookings[0].(map[string]interface{})["tourist"].(map[string]interface{})
	assert.Equal(t, "Lee", tourist["name"])
}
