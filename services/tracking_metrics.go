package services

import "sync/atomic"

// TrackingMetrics counts location traffic since process start.
type TrackingMetrics struct {
	BookingsCreated  atomic.Int64
	UpdatesAccepted  atomic.Int64
	UpdatesRejected  atomic.Int64
	UpdatesFailed    atomic.Int64
	MessagesQueued   atomic.Int64
	EventsFailed     atomic.Int64
	SimulationsBegun atomic.Int64
}

// TrackingSnapshot is a point-in-time copy of TrackingMetrics.
type TrackingSnapshot struct {
	BookingsCreated  int64 `json:"bookings_created"`
	UpdatesAccepted  int64 `json:"updates_accepted"`
	UpdatesRejected  int64 `json:"updates_rejected"`
	UpdatesFailed    int64 `json:"updates_failed"`
	MessagesQueued   int64 `json:"messages_queued"`
	EventsFailed     int64 `json:"events_failed"`
	SimulationsBegun int64 `json:"simulations_begun"`
}

func (m *TrackingMetrics) Snapshot() TrackingSnapshot {
	return TrackingSnapshot{
		BookingsCreated:  m.BookingsCreated.Load(),
		UpdatesAccepted:  m.UpdatesAccepted.Load(),
		UpdatesRejected:  m.UpdatesRejected.Load(),
		UpdatesFailed:    m.UpdatesFailed.Load(),
		MessagesQueued:   m.MessagesQueued.Load(),
		EventsFailed:     m.EventsFailed.Load(),
		SimulationsBegun: m.SimulationsBegun.Load(),
	}
}
