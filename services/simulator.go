package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/geo"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/utils"
)

const (
	defaultSimSteps = 10
	maxSimSteps     = 1000
	minSimInterval  = 10 * time.Millisecond
	walkJitter      = 0.001
	walkETA         = 5
)

// Bookings without a known position start here.
var simOrigin = geo.Point{Lat: 17.0, Lng: 80.0}

// SimulationRequest configures one simulated worker. Without a destination the
// worker wanders around its position until stopped.
type SimulationRequest struct {
	DestLat  *float64
	DestLng  *float64
	Steps    int
	Interval time.Duration
}

func (r SimulationRequest) hasDestination() bool {
	return r.DestLat != nil && r.DestLng != nil
}

type simulation struct {
	StopChan chan struct{}
	Interval time.Duration
	done     chan struct{}
}

// Simulator drives location updates for bookings through BookingService,
// one ticker goroutine per booking.
type Simulator struct {
	bookings *BookingService
	interval time.Duration

	mu      sync.Mutex
	running map[uint]*simulation
}

func NewSimulator(bookings *BookingService, interval time.Duration) *Simulator {
	if interval < minSimInterval {
		interval = 3 * time.Second
	}
	return &Simulator{
		bookings: bookings,
		interval: interval,
		running:  make(map[uint]*simulation),
	}
}

// Start begins simulating bookingID. It fails with NotFound for an unknown
// booking and with Conflict when a simulation is already running for it.
func (s *Simulator) Start(ctx context.Context, bookingID uint, req SimulationRequest) error {
	if (req.DestLat == nil) != (req.DestLng == nil) {
		return fmt.Errorf("%w: dest_lat and dest_lng go together", utils.ErrInvalidInput)
	}
	if req.hasDestination() && !(geo.Point{Lat: *req.DestLat, Lng: *req.DestLng}).Valid() {
		return fmt.Errorf("%w: destination out of range", utils.ErrInvalidInput)
	}
	if req.Steps < 0 || req.Steps > maxSimSteps {
		return fmt.Errorf("%w: steps must be between 1 and %d", utils.ErrInvalidInput, maxSimSteps)
	}
	if req.Steps == 0 {
		req.Steps = defaultSimSteps
	}
	if req.Interval <= 0 {
		req.Interval = s.interval
	}
	if req.Interval < minSimInterval {
		req.Interval = minSimInterval
	}

	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	from := simOrigin
	if booking.CurrentLat != nil && booking.CurrentLng != nil {
		from = geo.Point{Lat: *booking.CurrentLat, Lng: *booking.CurrentLng}
	}

	s.mu.Lock()
	if _, ok := s.running[bookingID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: simulation already running for booking %d", utils.ErrConflict, bookingID)
	}
	sim := &simulation{
		StopChan: make(chan struct{}),
		Interval: req.Interval,
		done:     make(chan struct{}),
	}
	s.running[bookingID] = sim
	s.mu.Unlock()

	s.bookings.Metrics().SimulationsBegun.Add(1)
	utils.InfoLogger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"destination": req.hasDestination(),
		"steps":       req.Steps,
		"interval":    req.Interval.String(),
	}).Info("Simulation started")

	go s.run(bookingID, sim, from, req)
	return nil
}

func (s *Simulator) run(bookingID uint, sim *simulation, from geo.Point, req SimulationRequest) {
	defer func() {
		s.mu.Lock()
		if s.running[bookingID] == sim {
			delete(s.running, bookingID)
		}
		s.mu.Unlock()
		close(sim.done)
	}()

	ticker := time.NewTicker(sim.Interval)
	defer ticker.Stop()

	var dest geo.Point
	if req.hasDestination() {
		dest = geo.Point{Lat: *req.DestLat, Lng: *req.DestLng}
	}
	pos := from
	step := 0

	for {
		select {
		case <-sim.StopChan:
			return
		case <-ticker.C:
			var in LocationInput
			finished := false
			if req.hasDestination() {
				step++
				pos = geo.Interpolate(from, dest, float64(step)/float64(req.Steps))
				in, finished = towards(pos, dest, step >= req.Steps)
			} else {
				pos = wander(pos)
				in = walkInput(pos)
			}

			if _, err := s.bookings.UpdateLocation(context.Background(), bookingID, in); err != nil {
				entry := utils.ErrorLogger.WithField("booking_id", bookingID).WithError(err)
				if errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrConflict) || errors.Is(err, utils.ErrInvalidInput) {
					entry.Warn("Simulation stopped")
					return
				}
				entry.Warn("Simulated update failed")
				continue
			}
			if finished {
				utils.InfoLogger.WithField("booking_id", bookingID).Info("Simulation reached destination")
				return
			}
		}
	}
}

// Stop ends the simulation for bookingID and waits for its goroutine.
func (s *Simulator) Stop(bookingID uint) error {
	s.mu.Lock()
	sim, ok := s.running[bookingID]
	if ok {
		delete(s.running, bookingID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no simulation running for booking %d", utils.ErrNotFound, bookingID)
	}
	close(sim.StopChan)
	<-sim.done
	utils.InfoLogger.WithField("booking_id", bookingID).Info("Simulation stopped")
	return nil
}

// StopAll ends every running simulation.
func (s *Simulator) StopAll() {
	s.mu.Lock()
	all := s.running
	s.running = make(map[uint]*simulation)
	s.mu.Unlock()

	for _, sim := range all {
		close(sim.StopChan)
		<-sim.done
	}
}

func (s *Simulator) Running(bookingID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[bookingID]
	return ok
}

// Wait blocks until the simulation for bookingID ends on its own or timeout passes.
func (s *Simulator) Wait(bookingID uint, timeout time.Duration) bool {
	s.mu.Lock()
	sim, ok := s.running[bookingID]
	s.mu.Unlock()
	if !ok {
		return true
	}
	select {
	case <-sim.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// wander moves p by up to walkJitter degrees on each axis.
func wander(p geo.Point) geo.Point {
	next := geo.Point{
		Lat: utils.RoundTo(p.Lat+(rand.Float64()*2-1)*walkJitter, 6),
		Lng: utils.RoundTo(p.Lng+(rand.Float64()*2-1)*walkJitter, 6),
	}
	if !next.Valid() {
		return p
	}
	return next
}

func walkInput(p geo.Point) LocationInput {
	status := models.StatusEnroute
	eta := walkETA
	return LocationInput{Lat: &p.Lat, Lng: &p.Lng, Status: &status, ETAMinutes: &eta}
}

func towards(pos, dest geo.Point, last bool) (LocationInput, bool) {
	lat, lng := utils.RoundTo(pos.Lat, 6), utils.RoundTo(pos.Lng, 6)
	status := models.StatusEnroute
	eta := geo.ETAMinutes(geo.HaversineKm(geo.Point{Lat: lat, Lng: lng}, dest), geo.AverageSpeedKmh)
	if last {
		lat, lng = dest.Lat, dest.Lng
		status = models.StatusArrived
		eta = 0
	}
	return LocationInput{Lat: &lat, Lng: &lng, Status: &status, ETAMinutes: &eta}, last
}
