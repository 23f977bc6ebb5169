package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/config"
	"github.com/yeremiapane/local-talent/database"
	"github.com/yeremiapane/local-talent/hub"
	"github.com/yeremiapane/local-talent/mq"
	"github.com/yeremiapane/local-talent/obs"
	"github.com/yeremiapane/local-talent/repository"
	"github.com/yeremiapane/local-talent/router"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// application holds the wired components of one server process.
type application struct {
	cfg       config.App
	db        *gorm.DB
	hub       *hub.Hub
	events    mq.EventPublisher
	bookings  *services.BookingService
	simulator *services.Simulator
	engine    *gin.Engine
}

func newApplication(cfg config.App, db *gorm.DB, events mq.EventPublisher) *application {
	if events == nil {
		events = mq.Nop{}
	}
	workerRepo := repository.NewWorkerRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	observers := hub.NewHub(cfg.WSSendBuffer, cfg.WSPingInterval())

	bookings := services.NewBookingService(workerRepo, bookingRepo, observers, services.BookingOptions{
		StrictStatus: cfg.StrictStatus,
		Events:       events,
		Metrics:      &services.TrackingMetrics{},
	})
	simulator := services.NewSimulator(bookings, cfg.SimInterval())

	engine := router.SetupRouter(router.Options{
		Directory:      services.NewDirectoryService(workerRepo),
		Bookings:       bookings,
		Simulator:      simulator,
		Hub:            observers,
		Ping:           bookingRepo.Ping,
		StaticDir:      cfg.StaticDir,
		CORSOrigin:     cfg.CORSOrigin,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		WSPing:         cfg.WSPingInterval(),
	})

	return &application{
		cfg:       cfg,
		db:        db,
		hub:       observers,
		events:    events,
		bookings:  bookings,
		simulator: simulator,
		engine:    engine,
	}
}

// close stops simulations, disconnects observers and flushes pending events.
func (a *application) close() {
	a.simulator.StopAll()
	a.hub.Shutdown()
	a.bookings.Wait()
	if err := a.events.Close(); err != nil {
		utils.ErrorLogger.WithError(err).Warn("Closing event publisher")
	}
}

// listen binds port, moving to the next one while the address is taken.
func listen(port, retries int) (net.Listener, error) {
	var lastErr error
	for i := 0; i <= retries; i++ {
		addr := fmt.Sprintf(":%d", port+i)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if port == 0 || !errors.Is(err, syscall.EADDRINUSE) {
			return nil, err
		}
		utils.ErrorLogger.Warnf("Port %d in use, trying %d", port+i, port+i+1)
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in %d..%d: %w", port, port+retries, lastErr)
}

func newEventPublisher(cfg config.App) mq.EventPublisher {
	if cfg.RabbitURL == "" {
		return mq.Nop{}
	}
	pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("RabbitMQ unavailable, domain events disabled")
		return mq.Nop{}
	}
	utils.InfoLogger.Infof("Publishing booking events to exchange %s", cfg.BookingExchange)
	return pub
}

func main() {
	utils.InitLogger()

	// Load .env
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLoggerWithLevel(cfg.LogLevel)
	utils.InfoLogger.Infof("Starting with %s", cfg)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.OTLPEndpoint, cfg.GinMode)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("Tracing disabled")
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.EnsureSchema(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to prepare schema: %v", err)
	}

	app := newApplication(cfg, db, newEventPublisher(cfg))

	ln, err := listen(cfg.Port, cfg.PortRetries)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to listen: %v", err)
	}
	srv := &http.Server{
		Handler:           app.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.WithFields(logrus.Fields{
			"addr": ln.Addr().String(),
		}).Info("Listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("HTTP shutdown")
	}
	app.close()
	if err := shutdownTracer(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("Tracer shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
