package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/hub"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const maxObserverMessage = 512

type TrackingController struct {
	Bookings     *services.BookingService
	Hub          *hub.Hub
	PingInterval time.Duration
}

func NewTrackingController(bookings *services.BookingService, h *hub.Hub, pingInterval time.Duration) *TrackingController {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &TrackingController{Bookings: bookings, Hub: h, PingInterval: pingInterval}
}

// WatchBooking -> WebSocket endpoint streaming location updates of one booking
func (tc *TrackingController) WatchBooking(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if _, err := tc.Bookings.Get(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithField("booking_id", id).WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := tc.Hub.NewClient(ws, c.ClientIP())
	defer client.Close()

	if err := tc.Hub.Subscribe(id, client); err != nil {
		utils.ErrorLogger.WithField("booking_id", id).WithError(err).Warn("Subscribe failed")
		return
	}

	// Observers only send pongs and close frames. A missing pong past two
	// ping intervals counts as a disconnect.
	ws.SetReadLimit(maxObserverMessage)
	_ = ws.SetReadDeadline(time.Now().Add(2 * tc.PingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * tc.PingInterval))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.InfoLogger.WithFields(logrus.Fields{
					"booking_id": id,
					"remote":     client.Remote(),
				}).WithError(err).Debug("Observer connection dropped")
			}
			break
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"booking_id": id,
		"remote":     client.Remote(),
	}).Info("Observer disconnected")
}
