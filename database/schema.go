package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/utils"
	"gorm.io/gorm"
)

// bookingTrackingColumns are the columns location tracking relies on. Older
// databases created the bookings table without them.
var bookingTrackingColumns = []string{"current_lat", "current_lng", "status", "eta_minutes", "updated_at", "version"}

// legacyBookingColumns come from the first bookings schema (worker_id, date, time).
var legacyBookingColumns = []string{"date", "time"}

// HasColumn reports whether the table behind model has the named column.
func HasColumn(db *gorm.DB, model interface{}, column string) bool {
	return db.Migrator().HasColumn(model, column)
}

// MissingColumns lists the tracking columns absent from the bookings table.
// A missing table reports every column.
func MissingColumns(db *gorm.DB) []string {
	var missing []string
	if !db.Migrator().HasTable(&models.Booking{}) {
		return append(missing, bookingTrackingColumns...)
	}
	for _, col := range bookingTrackingColumns {
		if !HasColumn(db, &models.Booking{}, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// EnsureSchema brings the database up to the current schema. It only adds
// tables and columns, so running it again is a no-op.
func EnsureSchema(db *gorm.DB) error {
	missing := MissingColumns(db)
	hadHistory := db.Migrator().HasTable(&models.LocationHistory{})

	if err := db.AutoMigrate(
		&models.Worker{},
		&models.Booking{},
		&models.LocationHistory{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if len(missing) > 0 {
		utils.InfoLogger.WithField("columns", missing).Info("bookings: tracking columns added")
	}
	if !hadHistory {
		utils.InfoLogger.Info("booking_location_history: table created")
	}

	// Rows written before tracking existed have no status.
	if err := db.Model(&models.Booking{}).
		Where("status IS NULL AND version = 0 AND current_lat IS NULL").
		Update("status", models.StatusPending).Error; err != nil {
		return fmt.Errorf("backfill booking status: %w", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("updated_at IS NULL").
		UpdateColumn("updated_at", gorm.Expr("COALESCE(created_at, ?)", time.Now().UTC())).Error; err != nil {
		return fmt.Errorf("backfill booking updated_at: %w", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("created_at IS NULL").
		UpdateColumn("created_at", gorm.Expr("updated_at")).Error; err != nil {
		return fmt.Errorf("backfill booking created_at: %w", err)
	}

	for _, col := range legacyBookingColumns {
		if HasColumn(db, &models.Booking{}, col) {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"table":  "bookings",
				"column": col,
			}).Warn("legacy column present; new bookings leave it empty")
		}
	}

	utils.InfoLogger.Println("Schema ensured.")
	return nil
}
