package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/utils"
)

// Hub keeps the booking -> observers registry for this process.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint]map[*Client]struct{}
	clients map[*Client]struct{}

	sendBuffer   int
	pingInterval time.Duration
}

func NewHub(sendBuffer int, pingInterval time.Duration) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		subs:         make(map[uint]map[*Client]struct{}),
		clients:      make(map[*Client]struct{}),
		sendBuffer:   sendBuffer,
		pingInterval: pingInterval,
	}
}

// NewClient wraps conn and starts its writer goroutine.
func (h *Hub) NewClient(conn Conn, remote string) *Client {
	c := &Client{
		hub:      h,
		conn:     conn,
		remote:   remote,
		send:     make(chan []byte, h.sendBuffer),
		done:     make(chan struct{}),
		bookings: make(map[uint]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	return c
}

// Subscribe registers c for bookingID and queues the connected acknowledgement.
func (h *Hub) Subscribe(bookingID uint, c *Client) error {
	data, err := json.Marshal(NewConnectedMessage(bookingID))
	if err != nil {
		return err
	}

	h.mu.Lock()
	if c.closed() {
		h.mu.Unlock()
		return fmt.Errorf("%w: client %s already closed", utils.ErrDeliveryFailure, c.remote)
	}
	set, ok := h.subs[bookingID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subs[bookingID] = set
	}
	set[c] = struct{}{}
	c.bookings[bookingID] = struct{}{}
	// Queued under the lock so no location message for this booking can
	// reach c ahead of the ack.
	if !c.enqueue(data) {
		h.removeLocked(bookingID, c)
		h.mu.Unlock()
		return fmt.Errorf("%w: connected ack for booking %d", utils.ErrDeliveryFailure, bookingID)
	}
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"remote":     c.remote,
	}).Info("Observer subscribed")
	return nil
}

func (h *Hub) Unsubscribe(bookingID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(bookingID, c)
}

func (h *Hub) removeLocked(bookingID uint, c *Client) {
	delete(c.bookings, bookingID)
	set, ok := h.subs[bookingID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, bookingID)
	}
}

// Detach removes c from every booking it joined.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range c.bookings {
		h.removeLocked(id, c)
	}
	delete(h.clients, c)
}

// Publish queues msg for every observer of bookingID and returns how many
// took it. Closed or saturated observers are skipped and logged.
func (h *Hub) Publish(bookingID uint, msg interface{}) int {
	data, ok := msg.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(msg)
		if err != nil {
			utils.ErrorLogger.WithField("booking_id", bookingID).WithError(err).Error("Error marshaling message")
			return 0
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.subs[bookingID] {
		if c.enqueue(data) {
			delivered++
			continue
		}
		utils.ErrorLogger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"remote":     c.remote,
		}).WithError(utils.ErrDeliveryFailure).Warn("Observer skipped")
	}
	return delivered
}

// Subscribers returns the number of live observers of bookingID.
func (h *Hub) Subscribers(bookingID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[bookingID])
}

// Bookings returns the number of bookings with at least one observer.
func (h *Hub) Bookings() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Clients returns the number of open observer connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}
