package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/testutil"
	"github.com/yeremiapane/local-talent/utils"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int { return &n }

func TestWorkerRepoOrderingAndSearch(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_workers")
	testutil.SeedWorkers(t, db)
	repo := NewWorkerRepo(db)
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Lakshmi Devi", all[0].Name)
	assert.Equal(t, "8 years", all[0].Exp)

	hits, err := repo.Search(ctx, "HYDERABAD")
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = repo.Search(ctx, "plumb")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Ravi Kumar", hits[0].Name)

	hits, err = repo.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, hits)

	women, err := repo.ListWomen(ctx)
	require.NoError(t, err)
	require.Len(t, women, 1)
	assert.True(t, women[0].IsWoman)
}

func TestWorkerRepoByID(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_worker_byid")
	seeded := testutil.SeedWorkers(t, db)
	repo := NewWorkerRepo(db)
	ctx := context.Background()

	w, err := repo.ByID(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Plumber", w.Skill)

	_, err = repo.ByID(ctx, 999)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	ok, err := repo.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookingRepoUpdateLocation(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_booking_update")
	seeded := testutil.SeedWorkers(t, db)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	b := &models.Booking{WorkerID: seeded[0].ID, Status: strPtr(models.StatusPending)}
	require.NoError(t, repo.Create(ctx, b))
	require.NotZero(t, b.ID)

	at := time.Now().UTC().Truncate(time.Second)
	got, err := repo.UpdateLocation(ctx, b.ID, models.LocationUpdate{
		Lat: 17.0, Lng: 80.0, Status: strPtr(models.StatusEnroute), ETAMinutes: intPtr(10),
	}, at)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentLat)
	assert.Equal(t, 17.0, *got.CurrentLat)
	assert.Equal(t, 80.0, *got.CurrentLng)
	assert.Equal(t, models.StatusEnroute, *got.Status)
	assert.Equal(t, 10, *got.ETAMinutes)
	assert.Equal(t, int64(1), got.Version)

	got, err = repo.UpdateLocation(ctx, b.ID, models.LocationUpdate{Lat: 17.1, Lng: 80.1}, at.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, got.Status)
	assert.Nil(t, got.ETAMinutes)
	assert.Equal(t, int64(2), got.Version)

	hist, err := repo.History(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 17.0, hist[0].Lat)
	assert.Equal(t, 17.1, hist[1].Lat)
}

func TestBookingRepoUpdateUnknown(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_booking_unknown")
	repo := NewBookingRepo(db)
	ctx := context.Background()

	_, err := repo.UpdateLocation(ctx, 42, models.LocationUpdate{Lat: 1, Lng: 1}, time.Now())
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	n, err := repo.CountHistory(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBookingRepoStorageUnavailable(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_booking_closed")
	repo := NewBookingRepo(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.ByID(context.Background(), 1)
	assert.True(t, errors.Is(err, utils.ErrStorageUnavailable))
	assert.Error(t, repo.Ping(context.Background()))
}

func TestBookingRepoUpdateLocationChecked(t *testing.T) {
	db := testutil.OpenInMemoryDB(t, "repo_checked")
	workers := testutil.SeedWorkers(t, db)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	b := &models.Booking{WorkerID: workers[0].ID, Status: strPtr(models.StatusEnroute)}
	require.NoError(t, repo.Create(ctx, b))

	rejected := fmt.Errorf("%w: nope", utils.ErrConflict)
	_, err := repo.UpdateLocationChecked(ctx, b.ID, models.LocationUpdate{Lat: 1, Lng: 1}, time.Now(),
		func(current *models.Booking, u *models.LocationUpdate) error {
			assert.Equal(t, models.StatusEnroute, *current.Status)
			return rejected
		})
	assert.ErrorIs(t, err, rejected)
	n, err := repo.CountHistory(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := repo.UpdateLocationChecked(ctx, b.ID, models.LocationUpdate{Lat: 2, Lng: 2}, time.Now(),
		func(current *models.Booking, u *models.LocationUpdate) error {
			u.Status = current.Status
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnroute, *got.Status)
	assert.Equal(t, int64(1), got.Version)

	_, err = repo.UpdateLocationChecked(ctx, 4242, models.LocationUpdate{Lat: 1, Lng: 1}, time.Now(),
		func(*models.Booking, *models.LocationUpdate) error { return nil })
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
