package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type App struct {
	// Network
	Port        int    `envconfig:"PORT" default:"5000"`
	PortRetries int    `envconfig:"PORT_RETRIES" default:"10"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"frontend"`
	CORSOrigin  string `envconfig:"CORS_ORIGIN" default:"*"`

	// DB
	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN      string `envconfig:"DB_DSN"`
	PGHost     string `envconfig:"PGHOST" default:"localhost"`
	PGPort     int    `envconfig:"PGPORT" default:"5432"`
	PGUser     string `envconfig:"PGUSER" default:"postgres"`
	PGPassword string `envconfig:"PGPASSWORD" default:"postgres"`
	PGDatabase string `envconfig:"PGDATABASE" default:"local_talent"`

	// Booking behaviour
	StrictStatus  bool `envconfig:"STRICT_STATUS" default:"false"`
	SimIntervalMS int  `envconfig:"SIM_INTERVAL_MS" default:"3000"`

	// Rate limiting on mutating routes
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Observer connections
	WSSendBuffer  int `envconfig:"WS_SEND_BUFFER" default:"16"`
	WSPingSeconds int `envconfig:"WS_PING_SECONDS" default:"30"`

	// Optional integrations, disabled when empty
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	OTLPEndpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (App, error) {
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate checks values envconfig cannot express.
func (c App) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite, mysql or postgres)", c.DBDriver)
	}
	if c.DBDriver == "mysql" && c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required for DB_DRIVER=mysql")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.PortRetries < 0 {
		return fmt.Errorf("PORT_RETRIES must not be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.WSSendBuffer <= 0 || c.WSPingSeconds <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER and WS_PING_SECONDS must be positive")
	}
	if c.SimIntervalMS <= 0 {
		return fmt.Errorf("SIM_INTERVAL_MS must be positive")
	}
	return nil
}

// DSN returns the data source name for the configured driver. Postgres falls
// back to the PG* variables when DB_DSN is empty.
func (c App) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.PGUser, c.PGPassword),
			Host:     fmt.Sprintf("%s:%d", c.PGHost, c.PGPort),
			Path:     "/" + c.PGDatabase,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		return "local_talent.db"
	}
}

func (c App) WSPingInterval() time.Duration {
	return time.Duration(c.WSPingSeconds) * time.Second
}

func (c App) SimInterval() time.Duration {
	return time.Duration(c.SimIntervalMS) * time.Millisecond
}

// String masks credentials.
func (c App) String() string {
	dsn := c.DSN()
	if i := strings.Index(dsn, "@"); i > 0 {
		dsn = "***" + dsn[i:]
	}
	return fmt.Sprintf("App{port: %d, db: %s %s, strict_status: %t, rabbit: %t, otlp: %t}",
		c.Port, c.DBDriver, dsn, c.StrictStatus, c.RabbitURL != "", c.OTLPEndpoint != "")
}

// InitDB opens the configured database through gorm.
func InitDB(c App) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.DBDriver {
	case "mysql":
		dialector = mysql.Open(c.DSN())
	case "postgres":
		dialector = postgres.Open(c.DSN())
	default:
		dialector = sqlite.Open(c.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", c.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.DBDriver == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}
