package models

import "time"

// LocationHistory is an append-only record of one position report.
type LocationHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookingID  uint      `gorm:"not null;index" json:"booking_id"`
	Lat        float64   `gorm:"not null" json:"lat"`
	Lng        float64   `gorm:"not null" json:"lng"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
}

func (LocationHistory) TableName() string {
	return "booking_location_history"
}
