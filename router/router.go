package router

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/local-talent/controllers"
	"github.com/yeremiapane/local-talent/hub"
	"github.com/yeremiapane/local-talent/middlewares"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
)

// Options carries everything the HTTP layer needs.
type Options struct {
	Directory *services.DirectoryService
	Bookings  *services.BookingService
	Simulator *services.Simulator
	Hub       *hub.Hub
	// Ping reports whether storage answers.
	Ping func(ctx context.Context) error

	StaticDir      string
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
	WSPing         time.Duration
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	workerCtrl := controllers.NewWorkerController(opts.Directory)
	bookingCtrl := controllers.NewBookingController(opts.Bookings, opts.Simulator)
	trackingCtrl := controllers.NewTrackingController(opts.Bookings, opts.Hub, opts.WSPing)
	healthCtrl := controllers.NewHealthController(opts.Ping, opts.Hub, opts.Bookings.Metrics())

	rps, burst := opts.RateLimitRPS, opts.RateLimitBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	limiter := middlewares.NewRateLimiter(rps, burst)

	// ----------------------------------------------------------------
	//                      HEALTH
	// ----------------------------------------------------------------
	r.GET("/ping", healthCtrl.Live)
	r.GET("/healthz", healthCtrl.Health)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/landing.html")
	})

	// ----------------------------------------------------------------
	//                      DIRECTORY
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.GET("/workers", workerCtrl.ListWorkers)
	api.GET("/workers/:id", workerCtrl.GetWorker)
	api.GET("/search", workerCtrl.Search)

	// ----------------------------------------------------------------
	//                      BOOKINGS
	// ----------------------------------------------------------------
	api.GET("/bookings/:id", bookingCtrl.GetBooking)

	write := api.Group("/")
	write.Use(limiter.RateLimit())
	{
		write.POST("/add-worker", workerCtrl.AddWorker)
		write.POST("/workers", workerCtrl.AddWorker)
		write.POST("/bookings", bookingCtrl.CreateBooking)
		write.POST("/bookings/:id/update-location", bookingCtrl.UpdateLocation)
		write.POST("/bookings/:id/simulate", bookingCtrl.StartSimulation)
		write.DELETE("/bookings/:id/simulate", bookingCtrl.StopSimulation)
	}

	// ----------------------------------------------------------------
	//                      LIVE TRACKING
	// ----------------------------------------------------------------
	r.GET("/ws/bookings/:id", trackingCtrl.WatchBooking)

	r.NoRoute(staticOrNotFound(opts.StaticDir))

	return r
}

// staticOrNotFound serves files from dir for unmatched GET requests outside
// /api and /ws. Everything else gets the JSON not found envelope.
func staticOrNotFound(dir string) gin.HandlerFunc {
	var files http.Handler
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			files = http.FileServer(gin.Dir(dir, false))
			utils.InfoLogger.Infof("Serving static files from %s", dir)
		} else {
			utils.ErrorLogger.Warnf("Static directory %q not found, pages disabled", dir)
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		isPage := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead
		if files != nil && isPage && !strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/ws/") {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		utils.RespondAppError(c, fmt.Errorf("%w: route %s %s", utils.ErrNotFound, c.Request.Method, path))
	}
}
