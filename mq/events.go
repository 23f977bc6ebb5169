package mq

import "time"

type BookingCreated struct {
	BookingID uint      `json:"booking_id"`
	WorkerID  uint      `json:"worker_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingLocationUpdated struct {
	BookingID  uint      `json:"booking_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Status     *string   `json:"status"`
	ETAMinutes *int      `json:"eta_minutes"`
	Seq        int64     `json:"seq"`
	UpdatedAt  time.Time `json:"updated_at"`
}
