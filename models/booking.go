package models

import "time"

// Conventional booking states. Status is free text unless strict transitions are enabled.
const (
	StatusPending   = "pending"
	StatusEnroute   = "enroute"
	StatusArrived   = "arrived"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WorkerID      uint      `gorm:"not null;index" json:"worker_id"`
	CustomerName  *string   `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone *string   `gorm:"type:varchar(20)" json:"customer_phone"`
	CurrentLat    *float64  `gorm:"column:current_lat" json:"current_lat"`
	CurrentLng    *float64  `gorm:"column:current_lng" json:"current_lng"`
	Status        *string   `gorm:"column:status;type:varchar(32)" json:"status"`
	ETAMinutes    *int      `gorm:"column:eta_minutes" json:"eta_minutes"`
	Version       int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	History []LocationHistory `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// LocationUpdate is one position report for a booking. Nil Status or
// ETAMinutes clear the stored values.
type LocationUpdate struct {
	Lat        float64
	Lng        float64
	Status     *string
	ETAMinutes *int
}

var transitions = map[string][]string{
	StatusPending: {StatusEnroute, StatusCancelled},
	StatusEnroute: {StatusArrived, StatusCancelled},
	StatusArrived: {StatusCompleted, StatusCancelled},
}

// KnownStatus reports whether s is one of the conventional states.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusEnroute, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is allowed by
// pending -> enroute -> arrived -> completed, with cancelled reachable from
// any non-terminal state. Staying in the same state is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
