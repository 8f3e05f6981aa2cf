package notify

import "tourbook/pkg/models"

// StatusNotices is what each audience hears when a booking moves to a status.
// A nil entry means that audience is not notified.
type StatusNotices struct {
	Tourist *Message
	Guide   *Message
	Admins  *Message
}

var statusTable = map[string]StatusNotices{
	models.BookingAccepted: {
		Tourist: &Message{
			Type:  TypeBookingAccepted,
			Title: "Booking Confirmed",
			Body:  "Your guide has accepted your booking request.",
		},
	},
	models.BookingRejected: {
		Tourist: &Message{
			Type:  TypeBookingRejected,
			Title: "Booking Declined",
			Body:  "Your guide is unable to accept this booking. Try another date or guide.",
		},
	},
	models.BookingCancelled: {
		Tourist: &Message{
			Type:  TypeBookingCancelled,
			Title: "Booking Cancelled",
			Body:  "Your booking has been cancelled.",
		},
		Guide: &Message{
			Type:  TypeBookingCancelled,
			Title: "Booking Cancelled",
			Body:  "A booking with you has been cancelled.",
		},
		Admins: &Message{
			Type:  TypeBookingCancelled,
			Title: "Booking Cancelled",
			Body:  "A booking has been cancelled.",
		},
	},
	models.BookingCompleted: {
		Tourist: &Message{
			Type:  TypeBookingCompleted,
			Title: "Trip Completed",
			Body:  "Your trip is complete. Share your experience by rating your guide.",
		},
		Guide: &Message{
			Type:  TypeBookingCompleted,
			Title: "Trip Completed",
			Body:  "A trip has been marked as completed.",
		},
		Admins: &Message{
			Type:  TypeBookingCompleted,
			Title: "Booking Completed",
			Body:  "A booking has been completed.",
		},
	},
}

// NoticesFor returns the notices for a target status. ok is false for
// statuses that cannot be requested through the update endpoint; past is only
// set by the sweeper. The source status is never consulted.
func NoticesFor(status string) (StatusNotices, bool) {
	n, ok := statusTable[status]
	return n, ok
}
