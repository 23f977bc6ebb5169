package hub

import (
	"time"

	"github.com/yeremiapane/local-talent/models"
)

// Message types pushed to observers.
const (
	TypeConnected = "connected"
	TypeLocation  = "location"
)

// ConnectedMessage acknowledges a subscription.
type ConnectedMessage struct {
	Type      string `json:"type"`
	BookingID uint   `json:"booking_id"`
}

// LocationMessage carries one accepted location update. Seq is the booking
// version after the update; observers drop messages older than the last seen.
type LocationMessage struct {
	Type       string    `json:"type"`
	BookingID  uint      `json:"booking_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Status     *string   `json:"status"`
	ETAMinutes *int      `json:"eta_minutes"`
	Seq        int64     `json:"seq"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewConnectedMessage(bookingID uint) ConnectedMessage {
	return ConnectedMessage{Type: TypeConnected, BookingID: bookingID}
}

func NewLocationMessage(b *models.Booking) LocationMessage {
	msg := LocationMessage{
		Type:       TypeLocation,
		BookingID:  b.ID,
		Status:     b.Status,
		ETAMinutes: b.ETAMinutes,
		Seq:        b.Version,
		UpdatedAt:  b.UpdatedAt.UTC(),
	}
	if b.CurrentLat != nil {
		msg.Lat = *b.CurrentLat
	}
	if b.CurrentLng != nil {
		msg.Lng = *b.CurrentLng
	}
	return msg
}
