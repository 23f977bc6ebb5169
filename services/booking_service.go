package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/hub"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/mq"
	"github.com/yeremiapane/local-talent/repository"
	"github.com/yeremiapane/local-talent/utils"
	"go.opentelemetry.io/otel/attribute"
)

const defaultEventTimeout = 5 * time.Second

// Publisher fans a message out to the observers of one booking and returns
// how many accepted it. *hub.Hub satisfies it.
type Publisher interface {
	Publish(bookingID uint, msg interface{}) int
}

type CreateBookingInput struct {
	WorkerID      uint
	CustomerName  *string
	CustomerPhone *string
}

// LocationInput is a raw position report. Lat and Lng are pointers so a
// missing coordinate can be told apart from 0.
type LocationInput struct {
	Lat        *float64
	Lng        *float64
	Status     *string
	ETAMinutes *int
}

type BookingOptions struct {
	// StrictStatus enforces the pending -> enroute -> arrived -> completed
	// machine for known labels.
	StrictStatus bool
	Events       mq.EventPublisher
	Metrics      *TrackingMetrics
	EventTimeout time.Duration
	Now          func() time.Time
}

type BookingService struct {
	workers   *repository.WorkerRepo
	bookings  *repository.BookingRepo
	observers Publisher

	strict       bool
	events       mq.EventPublisher
	metrics      *TrackingMetrics
	eventTimeout time.Duration
	now          func() time.Time

	pending sync.WaitGroup
}

func NewBookingService(workers *repository.WorkerRepo, bookings *repository.BookingRepo, observers Publisher, opts BookingOptions) *BookingService {
	s := &BookingService{
		workers:      workers,
		bookings:     bookings,
		observers:    observers,
		strict:       opts.StrictStatus,
		events:       opts.Events,
		metrics:      opts.Metrics,
		eventTimeout: opts.EventTimeout,
		now:          opts.Now,
	}
	if s.events == nil {
		s.events = mq.Nop{}
	}
	if s.metrics == nil {
		s.metrics = &TrackingMetrics{}
	}
	if s.eventTimeout <= 0 {
		s.eventTimeout = defaultEventTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *BookingService) Metrics() *TrackingMetrics { return s.metrics }

func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (booking *models.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.Create", attribute.Int64("worker_id", int64(in.WorkerID)))
	defer func() { endSpan(span, err) }()

	if in.WorkerID == 0 {
		return nil, fmt.Errorf("%w: worker_id is required", utils.ErrInvalidInput)
	}
	ok, err := s.workers.Exists(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: worker %d", utils.ErrNotFound, in.WorkerID)
	}

	status := models.StatusPending
	b := &models.Booking{
		WorkerID:      in.WorkerID,
		CustomerName:  blankToNil(in.CustomerName),
		CustomerPhone: blankToNil(in.CustomerPhone),
		Status:        &status,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.metrics.BookingsCreated.Add(1)

	utils.InfoLogger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"worker_id":  b.WorkerID,
	}).Info("Booking created")

	s.emit(mq.KeyBookingCreated, mq.BookingCreated{
		BookingID: b.ID,
		WorkerID:  b.WorkerID,
		Status:    status,
		CreatedAt: b.CreatedAt,
	})
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (booking *models.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.Get", attribute.Int64("booking_id", int64(id)))
	defer func() { endSpan(span, err) }()

	return s.bookings.ByID(ctx, id)
}

// History returns the location trail of an existing booking, oldest first.
func (s *BookingService) History(ctx context.Context, id uint) (entries []models.LocationHistory, err error) {
	ctx, span := startSpan(ctx, "BookingService.History", attribute.Int64("booking_id", int64(id)))
	defer func() { endSpan(span, err) }()

	if _, err := s.bookings.ByID(ctx, id); err != nil {
		return nil, err
	}
	return s.bookings.History(ctx, id)
}

// UpdateLocation validates and persists one position report together with
// its history entry, then pushes it to the booking's observers. Omitted
// status and eta clear the stored values.
func (s *BookingService) UpdateLocation(ctx context.Context, id uint, in LocationInput) (booking *models.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.UpdateLocation", attribute.Int64("booking_id", int64(id)))
	defer func() { endSpan(span, err) }()

	update, err := validateLocation(in)
	if err != nil {
		s.metrics.UpdatesRejected.Add(1)
		return nil, err
	}

	var check repository.UpdateCheck
	if s.strict {
		check = checkTransition
	}

	booking, err = s.bookings.UpdateLocationChecked(ctx, id, update, s.now().UTC(), check)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrInvalidInput) || errors.Is(err, utils.ErrConflict) {
			s.metrics.UpdatesRejected.Add(1)
			return nil, err
		}
		s.metrics.UpdatesFailed.Add(1)
		utils.ErrorLogger.WithFields(logrus.Fields{
			"booking_id":  id,
			"lat":         update.Lat,
			"lng":         update.Lng,
			"status":      deref(update.Status),
			"eta_minutes": update.ETAMinutes,
		}).WithError(err).Error("Location update not persisted")
		return nil, err
	}
	s.metrics.UpdatesAccepted.Add(1)

	msg := hub.NewLocationMessage(booking)
	delivered := 0
	if s.observers != nil {
		delivered = s.observers.Publish(id, msg)
	}
	s.metrics.MessagesQueued.Add(int64(delivered))

	utils.InfoLogger.WithFields(logrus.Fields{
		"booking_id": id,
		"lat":        update.Lat,
		"lng":        update.Lng,
		"seq":        booking.Version,
		"observers":  delivered,
	}).Debug("Location updated")

	s.emit(mq.KeyBookingLocationUpdated, mq.BookingLocationUpdated{
		BookingID:  id,
		Lat:        msg.Lat,
		Lng:        msg.Lng,
		Status:     msg.Status,
		ETAMinutes: msg.ETAMinutes,
		Seq:        msg.Seq,
		UpdatedAt:  msg.UpdatedAt,
	})
	return booking, nil
}

// checkTransition enforces the status machine against the locked row. An
// omitted status keeps the current one.
func checkTransition(current *models.Booking, update *models.LocationUpdate) error {
	if update.Status == nil {
		update.Status = current.Status
		return nil
	}
	next := *update.Status
	if !models.KnownStatus(next) {
		return fmt.Errorf("%w: unknown status %q", utils.ErrInvalidInput, next)
	}
	if current.Status == nil || !models.KnownStatus(*current.Status) {
		return nil
	}
	if !models.CanTransition(*current.Status, next) {
		return fmt.Errorf("%w: status %s -> %s not allowed", utils.ErrConflict, *current.Status, next)
	}
	return nil
}

func validateLocation(in LocationInput) (models.LocationUpdate, error) {
	if in.Lat == nil || in.Lng == nil {
		return models.LocationUpdate{}, fmt.Errorf("%w: lat and lng are required", utils.ErrInvalidInput)
	}
	lat, lng := *in.Lat, *in.Lng
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.LocationUpdate{}, fmt.Errorf("%w: lat %v out of range", utils.ErrInvalidInput, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return models.LocationUpdate{}, fmt.Errorf("%w: lng %v out of range", utils.ErrInvalidInput, lng)
	}
	if in.ETAMinutes != nil && *in.ETAMinutes < 0 {
		return models.LocationUpdate{}, fmt.Errorf("%w: eta_minutes must not be negative", utils.ErrInvalidInput)
	}
	return models.LocationUpdate{
		Lat:        lat,
		Lng:        lng,
		Status:     blankToNil(in.Status),
		ETAMinutes: in.ETAMinutes,
	}, nil
}

// emit publishes a domain event in the background. Failures are only logged.
func (s *BookingService) emit(key string, v any) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.eventTimeout)
		defer cancel()
		if err := s.events.PublishJSON(ctx, key, v); err != nil {
			s.metrics.EventsFailed.Add(1)
			utils.ErrorLogger.WithField("routing_key", key).
				WithError(fmt.Errorf("%w: %w", utils.ErrDeliveryFailure, err)).
				Warn("Domain event dropped")
		}
	}()
}

// Wait blocks until every background event publish has finished.
func (s *BookingService) Wait() {
	s.pending.Wait()
}

func blankToNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
