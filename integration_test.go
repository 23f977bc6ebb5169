package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/local-talent/config"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/mq"
	"github.com/yeremiapane/local-talent/testutil"
	"github.com/yeremiapane/local-talent/utils"
)

func TestMain(m *testing.M) {
	utils.InitLoggerWithLevel("warn")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() config.App {
	return config.App{
		CORSOrigin:     "*",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		WSSendBuffer:   16,
		WSPingSeconds:  30,
		SimIntervalMS:  20,
	}
}

func startServer(t *testing.T, name string, cfg config.App) (*httptest.Server, *application, *mq.Recorder) {
	t.Helper()
	db := testutil.OpenInMemoryDB(t, name)
	require.NoError(t, db.Create(&models.Worker{Name: "Ravi Kumar", Skill: "Plumber", City: "Hyderabad", Phone: "9000000001"}).Error)

	events := &mq.Recorder{}
	app := newApplication(cfg, db, events)
	srv := httptest.NewServer(app.engine)
	t.Cleanup(func() {
		app.close()
		srv.Close()
	})
	return srv, app, events
}

func call(t *testing.T, method, url string, body interface{}) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func dialObserver(t *testing.T, srv *httptest.Server, bookingID uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/bookings/" + strconv.Itoa(int(bookingID))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var m map[string]interface{}
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestBookingTrackingEndToEnd(t *testing.T) {
	srv, app, events := startServer(t, "it_end_to_end", testConfig())

	// 1. Create booking
	code, env := call(t, http.MethodPost, srv.URL+"/api/bookings", map[string]interface{}{
		"worker_id":     1,
		"customer_name": "Test Customer",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var booking models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	require.NotZero(t, booking.ID)
	assert.Equal(t, uint(1), booking.WorkerID)
	require.NotNil(t, booking.Status)
	assert.Equal(t, "pending", *booking.Status)

	// 2. Observer subscribes
	conn := dialObserver(t, srv, booking.ID)
	hello := readJSON(t, conn)
	assert.Equal(t, "connected", hello["type"])
	assert.Equal(t, float64(booking.ID), hello["booking_id"])
	require.Eventually(t, func() bool { return app.hub.Subscribers(booking.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	// 3. Location update
	code, env = call(t, http.MethodPost, srv.URL+"/api/bookings/"+strconv.Itoa(int(booking.ID))+"/update-location", map[string]interface{}{
		"lat": 17.0, "lng": 80.0, "status": "enroute", "eta_minutes": 10,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var updated models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 17.0, *updated.CurrentLat)
	assert.Equal(t, 80.0, *updated.CurrentLng)
	assert.Equal(t, "enroute", *updated.Status)
	assert.Equal(t, 10, *updated.ETAMinutes)

	msg := readJSON(t, conn)
	assert.Equal(t, "location", msg["type"])
	assert.Equal(t, float64(booking.ID), msg["booking_id"])
	assert.Equal(t, 17.0, msg["lat"])
	assert.Equal(t, 80.0, msg["lng"])
	assert.Equal(t, "enroute", msg["status"])
	assert.Equal(t, float64(10), msg["eta_minutes"])
	assert.Equal(t, float64(1), msg["seq"])

	// 4. Snapshot and history
	code, env = call(t, http.MethodGet, srv.URL+"/api/bookings/"+strconv.Itoa(int(booking.ID)), nil)
	require.Equal(t, http.StatusOK, code)
	var snap models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 17.0, *snap.CurrentLat)

	hist, err := app.bookings.History(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 80.0, hist[0].Lng)

	app.bookings.Wait()
	assert.Equal(t, []string{mq.KeyBookingCreated, mq.KeyBookingLocationUpdated}, events.Keys())
}

func TestObserverIsolationAndDisconnect(t *testing.T) {
	srv, app, _ := startServer(t, "it_isolation", testConfig())

	ids := make([]uint, 2)
	for i := range ids {
		code, env := call(t, http.MethodPost, srv.URL+"/api/bookings", map[string]interface{}{"worker_id": 1})
		require.Equal(t, http.StatusCreated, code)
		var b models.Booking
		require.NoError(t, json.Unmarshal(env.Data, &b))
		ids[i] = b.ID
	}

	watcher := dialObserver(t, srv, ids[1])
	readJSON(t, watcher)

	code, _ := call(t, http.MethodPost, srv.URL+"/api/bookings/"+strconv.Itoa(int(ids[0]))+"/update-location", map[string]interface{}{"lat": 1.0, "lng": 2.0})
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := watcher.ReadMessage()
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "observer of another booking got %v", err)

	// Disconnect, then keep updating.
	other := dialObserver(t, srv, ids[0])
	readJSON(t, other)
	require.NoError(t, other.Close())
	require.Eventually(t, func() bool { return app.hub.Subscribers(ids[0]) == 0 }, 3*time.Second, 10*time.Millisecond)

	code, _ = call(t, http.MethodPost, srv.URL+"/api/bookings/"+strconv.Itoa(int(ids[0]))+"/update-location", map[string]interface{}{"lat": 1.5, "lng": 2.5})
	assert.Equal(t, http.StatusOK, code)
}

func TestErrorResponses(t *testing.T) {
	srv, _, _ := startServer(t, "it_errors", testConfig())

	code, env := call(t, http.MethodPost, srv.URL+"/api/bookings", map[string]interface{}{"worker_id": 99})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Code)
	assert.False(t, env.Status)

	code, env = call(t, http.MethodPost, srv.URL+"/api/bookings", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Code)

	code, env = call(t, http.MethodPost, srv.URL+"/api/bookings/1/update-location", map[string]interface{}{"lat": 17.0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Code)

	code, _ = call(t, http.MethodPost, srv.URL+"/api/bookings/12345/update-location", map[string]interface{}{"lat": 1.0, "lng": 1.0})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, http.MethodGet, srv.URL+"/api/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/bookings/12345"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDirectoryEndpoints(t *testing.T) {
	srv, _, _ := startServer(t, "it_directory", testConfig())

	code, env := call(t, http.MethodPost, srv.URL+"/api/add-worker", map[string]interface{}{
		"name": "Lakshmi", "skill": "Electrician", "city": "Warangal", "phone": "9000000002",
		"experience": "7 Years", "category": "women",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var w models.Worker
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.True(t, w.IsWoman)
	assert.Equal(t, "7 years", w.Exp)

	code, env = call(t, http.MethodGet, srv.URL+"/api/search?q=woman", nil)
	require.Equal(t, http.StatusOK, code)
	var women []models.Worker
	require.NoError(t, json.Unmarshal(env.Data, &women))
	require.Len(t, women, 1)
	assert.Equal(t, "Lakshmi", women[0].Name)

	code, env = call(t, http.MethodGet, srv.URL+"/api/workers", nil)
	require.Equal(t, http.StatusOK, code)
	var all []models.Worker
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 2)

	code, _ = call(t, http.MethodGet, srv.URL+"/api/workers/42", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = call(t, http.MethodPost, srv.URL+"/api/workers", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Code)
}

func TestSimulationEndpoints(t *testing.T) {
	srv, app, _ := startServer(t, "it_simulation", testConfig())

	code, env := call(t, http.MethodPost, srv.URL+"/api/bookings", map[string]interface{}{"worker_id": 1})
	require.Equal(t, http.StatusCreated, code)
	var b models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &b))
	base := srv.URL + "/api/bookings/" + strconv.Itoa(int(b.ID)) + "/simulate"

	conn := dialObserver(t, srv, b.ID)
	readJSON(t, conn)

	code, env = call(t, http.MethodPost, base, map[string]interface{}{"dest_lat": 17.02, "dest_lng": 80.02, "steps": 2, "interval_ms": 20})
	require.Equal(t, http.StatusAccepted, code, env.Message)

	first := readJSON(t, conn)
	second := readJSON(t, conn)
	assert.Equal(t, "enroute", first["status"])
	assert.Equal(t, "arrived", second["status"])
	assert.Equal(t, float64(2), second["seq"])

	require.Eventually(t, func() bool { return !app.simulator.Running(b.ID) }, 3*time.Second, 10*time.Millisecond)
	code, env = call(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Code)

	code, _ = call(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusAccepted, code)
	code, env = call(t, http.MethodPost, base, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Code)
	code, _ = call(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthAndRoot(t *testing.T) {
	srv, _, _ := startServer(t, "it_health", testConfig())

	code, env := call(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/landing.html", res.Header.Get("Location"))

	code, env = call(t, http.MethodGet, srv.URL+"/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Code)
}

func TestListenFallsBackWhenPortTaken(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ln, err := listen(port, 5)
	if err != nil {
		t.Skipf("no free neighbouring port: %v", err)
	}
	defer ln.Close()
	assert.NotEqual(t, port, ln.Addr().(*net.TCPAddr).Port)

	_, err = listen(port, 0)
	assert.Error(t, err)
}
