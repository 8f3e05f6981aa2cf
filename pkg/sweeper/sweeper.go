// Package sweeper moves accepted bookings whose date has gone by to "past" and
// credits the guide with a completed trip.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"tourbook/pkg/metrics"
	"tourbook/pkg/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type Sweeper struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func New(db *gorm.DB, logger *slog.Logger) *Sweeper {
	return &Sweeper{db: db, logger: logger, now: time.Now}
}

// SweepPast returns how many bookings were moved. A booking changed
// concurrently is skipped so its guide is credited at most once.
func (s *Sweeper) SweepPast(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var due []models.Booking
	err := s.db.WithContext(ctx).
		Select("id", "guide_id").
		Where("status = ? AND booking_date < ?", models.BookingAccepted, today).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, b := range due {
		moved := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", b.ID, models.BookingAccepted).
				Update("status", models.BookingPast)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return nil
			}
			moved = true
			return models.IncrementTripsCompleted(tx, b.GuideID)
		})
		if err != nil {
			s.logger.Warn("Failed to sweep booking",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()))
			continue
		}
		if moved {
			swept++
			metrics.BookingsSwept.Inc()
		}
	}
	return swept, nil
}

// Start schedules SweepPast on spec and returns the running cron; the caller
// stops it on shutdown.
func (s *Sweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.SweepPast(context.Background())
		if err != nil {
			s.logger.Error("Booking sweep failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			s.logger.Info("Booking sweep finished", slog.Int("moved", n))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
