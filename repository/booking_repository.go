package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	return translate(r.db.WithContext(ctx).Create(b).Error, "insert booking")
}

func (r *BookingRepo) ByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("booking %d", id))
	}
	return &b, nil
}

func (r *BookingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Booking{}).Count(&n).Error; err != nil {
		return 0, translate(err, "count bookings")
	}
	return n, nil
}

// UpdateCheck inspects the locked current row before an update is written.
// It may adjust u and rejects the update by returning an error.
type UpdateCheck func(current *models.Booking, u *models.LocationUpdate) error

// UpdateLocation overwrites the tracking fields, bumps the version and appends
// one history entry in a single transaction, then returns the new row.
func (r *BookingRepo) UpdateLocation(ctx context.Context, id uint, u models.LocationUpdate, at time.Time) (*models.Booking, error) {
	return r.UpdateLocationChecked(ctx, id, u, at, nil)
}

// UpdateLocationChecked is UpdateLocation with check run against the row read
// inside the same transaction. The write only lands if the row still carries
// the version check saw, otherwise it fails with ErrConflict.
func (r *BookingRepo) UpdateLocationChecked(ctx context.Context, id uint, u models.LocationUpdate, at time.Time, check UpdateCheck) (*models.Booking, error) {
	var out models.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Booking{}).Where("id = ?", id)
		guarded := false
		if check != nil {
			var current models.Booking
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, id).Error; err != nil {
				return translate(err, fmt.Sprintf("booking %d", id))
			}
			if err := check(&current, &u); err != nil {
				return err
			}
			q = q.Where("version = ?", current.Version)
			guarded = true
		}

		res := q.Updates(map[string]interface{}{
			"current_lat": u.Lat,
			"current_lng": u.Lng,
			"status":      nullable(u.Status),
			"eta_minutes": nullable(u.ETAMinutes),
			"updated_at":  at,
			"version":     gorm.Expr("version + ?", 1),
		})
		if res.Error != nil {
			return translate(res.Error, fmt.Sprintf("update booking %d", id))
		}
		if res.RowsAffected == 0 {
			if guarded {
				return fmt.Errorf("%w: booking %d changed concurrently", utils.ErrConflict, id)
			}
			return fmt.Errorf("%w: booking %d", utils.ErrNotFound, id)
		}

		entry := models.LocationHistory{BookingID: id, Lat: u.Lat, Lng: u.Lng, RecordedAt: at}
		if err := tx.Create(&entry).Error; err != nil {
			return translate(err, fmt.Sprintf("append history for booking %d", id))
		}

		return translate(tx.First(&out, id).Error, fmt.Sprintf("reload booking %d", id))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the location trail of a booking, oldest first.
func (r *BookingRepo) History(ctx context.Context, bookingID uint) ([]models.LocationHistory, error) {
	out := []models.LocationHistory{}
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("history of booking %d", bookingID))
	}
	return out, nil
}

func (r *BookingRepo) CountHistory(ctx context.Context, bookingID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.LocationHistory{}).Where("booking_id = ?", bookingID).Count(&n).Error; err != nil {
		return 0, translate(err, "count history")
	}
	return n, nil
}

// Ping checks that the store answers.
func (r *BookingRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translate(err, "database handle")
	}
	return translate(sqlDB.PingContext(ctx), "ping")
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
