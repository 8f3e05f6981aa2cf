package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleGuide   = "guide"
	RoleTourist = "tourist"
)

const (
	GuideStatusPending  = "pending"
	GuideStatusApproved = "approved"
	GuideStatusRejected = "rejected"
)

const (
	BookingPending   = "pending"
	BookingAccepted  = "accepted"
	BookingRejected  = "rejected"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingPast      = "past"
)

// newID fills an empty primary key before insert.
func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:255" json:"email"`
	FullName  string    `gorm:"size:120" json:"full_name"`
	Role      string    `gorm:"size:20;not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

type Guide struct {
	ID             string                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string                      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name           string                      `gorm:"size:120;not null" json:"name"`
	Bio            string                      `json:"bio"`
	Status         string                      `gorm:"size:20;not null;default:'pending';index" json:"status"`
	IsDeactivated  bool                        `gorm:"not null;default:false" json:"is_deactivated"`
	Languages      datatypes.JSONSlice[string] `json:"languages"`
	Location       string                      `gorm:"size:120" json:"location"`
	HourlyRate     float64                     `json:"hourly_rate"`
	TripsCompleted int                         `gorm:"not null;default:0" json:"trips_completed"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (g *Guide) BeforeCreate(tx *gorm.DB) error {
	newID(&g.ID)
	return nil
}

// Listed reports whether the guide is visible in search and listings.
func (g *Guide) Listed() bool {
	return g.Status == GuideStatusApproved && !g.IsDeactivated
}

type TouristProfile struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name      string    `gorm:"size:120" json:"name"`
	Location  string    `gorm:"size:120" json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *TouristProfile) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

type GuideItinerary struct {
	ID            string                      `gorm:"type:uuid;primaryKey" json:"id"`
	GuideID       string                      `gorm:"type:uuid;not null;index" json:"guide_id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Description   string                      `json:"description"`
	PlacesToVisit datatypes.JSONSlice[string] `json:"places_to_visit"`
	DurationHours int                         `json:"duration_hours"`
	Price         float64                     `json:"price"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func (i *GuideItinerary) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}

type GuideAvailability struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	GuideID     string    `gorm:"type:uuid;not null;index" json:"guide_id"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *GuideAvailability) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}

// Covers reports whether day falls inside the window, both ends inclusive.
func (a *GuideAvailability) Covers(day time.Time) bool {
	return a.IsAvailable && !a.StartDate.After(day) && !day.After(a.EndDate)
}

type Booking struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	TouristID   string    `gorm:"type:uuid;not null;index" json:"tourist_id"`
	GuideID     string    `gorm:"type:uuid;not null;index" json:"guide_id"`
	ItineraryID *string   `gorm:"type:uuid" json:"itinerary_id"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	Price       float64   `json:"price"`
	BookingDate time.Time `json:"booking_date"`
	GroupSize   int       `gorm:"not null;default:1" json:"group_size"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tourist   *TouristProfile `gorm:"foreignKey:TouristID" json:"tourist,omitempty"`
	Guide     *Guide          `gorm:"foreignKey:GuideID" json:"guide,omitempty"`
	Itinerary *GuideItinerary `gorm:"foreignKey:ItineraryID" json:"itinerary,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	newID(&b.ID)
	return nil
}

type RatingReview struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID  string    `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	TouristID  string    `gorm:"type:uuid;not null;index" json:"tourist_id"`
	GuideID    string    `gorm:"type:uuid;not null;index" json:"guide_id"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	ReviewText string    `json:"review_text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *RatingReview) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}

type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"size:40;not null" json:"type"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	newID(&n.ID)
	return nil
}

type SavedGuide struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TouristID string    `gorm:"type:uuid;not null;uniqueIndex:idx_saved_tourist_guide" json:"tourist_id"`
	GuideID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_saved_tourist_guide" json:"guide_id"`
	CreatedAt time.Time `json:"created_at"`

	Guide *Guide `gorm:"foreignKey:GuideID" json:"guide,omitempty"`
}

func (s *SavedGuide) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// All lists every table for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Guide{},
		&TouristProfile{},
		&GuideItinerary{},
		&GuideAvailability{},
		&Booking{},
		&RatingReview{},
		&Notification{},
		&SavedGuide{},
	}
}

// IncrementTripsCompleted bumps the guide's counter in a single UPDATE so
// concurrent completions cannot lose an increment.
func IncrementTripsCompleted(tx *gorm.DB, guideID string) error {
	return tx.Model(&Guide{}).
		Where("id = ?", guideID).
		UpdateColumn("trips_completed", gorm.Expr("trips_completed + ?", 1)).Error
}
