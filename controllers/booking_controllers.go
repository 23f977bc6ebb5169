package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
)

type BookingController struct {
	Bookings  *services.BookingService
	Simulator *services.Simulator
}

func NewBookingController(bookings *services.BookingService, simulator *services.Simulator) *BookingController {
	return &BookingController{Bookings: bookings, Simulator: simulator}
}

func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req struct {
		WorkerID      uint    `json:"worker_id"`
		CustomerName  *string `json:"customer_name"`
		CustomerPhone *string `json:"customer_phone"`
	}
	if err := bindJSON(c, &req); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	booking, err := bc.Bookings.Create(c.Request.Context(), services.CreateBookingInput{
		WorkerID:      req.WorkerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Booking created successfully", booking)
}

func (bc *BookingController) GetBooking(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	booking, err := bc.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking details", booking)
}

// UpdateLocation -> {lat, lng, status?, eta_minutes?}; omitted status and eta are cleared
func (bc *BookingController) UpdateLocation(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var req struct {
		Lat        *float64 `json:"lat"`
		Lng        *float64 `json:"lng"`
		Status     *string  `json:"status"`
		ETAMinutes *int     `json:"eta_minutes"`
	}
	if err := bindJSON(c, &req); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	booking, err := bc.Bookings.UpdateLocation(c.Request.Context(), id, services.LocationInput{
		Lat:        req.Lat,
		Lng:        req.Lng,
		Status:     req.Status,
		ETAMinutes: req.ETAMinutes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Location updated", booking)
}

// StartSimulation -> {dest_lat?, dest_lng?, steps?, interval_ms?}; an empty body wanders
func (bc *BookingController) StartSimulation(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var req struct {
		DestLat    *float64 `json:"dest_lat"`
		DestLng    *float64 `json:"dest_lng"`
		Steps      int      `json:"steps"`
		IntervalMS int      `json:"interval_ms"`
	}
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			utils.RespondAppError(c, err)
			return
		}
	}

	// The simulation outlives the request.
	err = bc.Simulator.Start(c.Request.Context(), id, services.SimulationRequest{
		DestLat:  req.DestLat,
		DestLng:  req.DestLng,
		Steps:    req.Steps,
		Interval: time.Duration(req.IntervalMS) * time.Millisecond,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Simulation started", gin.H{"booking_id": id})
}

func (bc *BookingController) StopSimulation(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := bc.Simulator.Stop(id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Simulation stopped", gin.H{"booking_id": id})
}
