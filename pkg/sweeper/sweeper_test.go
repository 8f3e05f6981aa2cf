package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"tourbook/pkg/database/databasetest"
	"tourbook/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Sweeper, *gorm.DB, *models.Guide, *models.TouristProfile) {
	db := databasetest.Open(t)
	s := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC) }

	guide := &models.Guide{UserID: "00000000-0000-0000-0000-000000000001", Name: "Asha", Status: models.GuideStatusApproved}
	require.NoError(t, db.Create(guide).Error)
	tourist := &models.TouristProfile{UserID: "00000000-0000-0000-0000-000000000002", Name: "Lee"}
	require.NoError(t, db.Create(tourist).Error)
	return s, db, guide, tourist
}

func booking(t *testing.T, db *gorm.DB, g *models.Guide, tp *models.TouristProfile, status string, day time.Time) *models.Booking {
	b := &models.Booking{TouristID: tp.ID, GuideID: g.ID, Status: status, BookingDate: day, GroupSize: 1}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestSweepPastMovesOnlyElapsedAcceptedBookings(t *testing.T) {
	s, db, g, tp := setup(t)

	elapsed := booking(t, db, g, tp, models.BookingAccepted, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))
	today := booking(t, db, g, tp, models.BookingAccepted, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	pending := booking(t, db, g, tp, models.BookingPending, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	n, err := s.SweepPast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.Booking
	db.First(&got, "id = ?", elapsed.ID)
	assert.Equal(t, models.BookingPast, got.Status)
	db.First(&got, "id = ?", today.ID)
	assert.Equal(t, models.BookingAccepted, got.Status)
	db.First(&got, "id = ?", pending.ID)
	assert.Equal(t, models.BookingPending, got.Status)

	var guide models.Guide
	db.First(&guide, "id = ?", g.ID)
	assert.Equal(t, 1, guide.TripsCompleted)
}

func TestSweepPastIsIdempotent(t *testing.T) {
	s, db, g, tp := setup(t)
	booking(t, db, g, tp, models.BookingAccepted, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	booking(t, db, g, tp, models.BookingAccepted, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))

	n, err := s.SweepPast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SweepPast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var guide models.Guide
	db.First(&guide, "id = ?", g.ID)
	assert.Equal(t, 2, guide.TripsCompleted)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, _, _, _ := setup(t)

	_, err := s.Start("not a schedule")
	assert.Error(t, err)

	c, err := s.Start("@hourly")
	require.NoError(t, err)
	c.Stop()
}
