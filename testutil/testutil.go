package testutil

import (
	"testing"

	"github.com/yeremiapane/local-talent/database"
	"github.com/yeremiapane/local-talent/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenInMemoryDB opens a named in-memory SQLite database with the schema
// applied. Names must be unique per test.
func OpenInMemoryDB(t testing.TB, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// SeedWorkers inserts a small directory and returns it in insertion order.
func SeedWorkers(t testing.TB, db *gorm.DB) []models.Worker {
	t.Helper()
	exp := func(n int) *int { return &n }
	workers := []models.Worker{
		{Name: "Ravi Kumar", Skill: "Plumber", City: "Hyderabad", Experience: exp(5), Phone: "9000000001"},
		{Name: "Lakshmi Devi", Skill: "Electrician", City: "Warangal", Experience: exp(8), Phone: "9000000002", IsWoman: true},
		{Name: "Suresh Babu", Skill: "Carpenter", City: "Hyderabad", Experience: nil, Phone: "9000000003"},
	}
	for i := range workers {
		if err := db.Create(&workers[i]).Error; err != nil {
			t.Fatalf("seed worker: %v", err)
		}
	}
	return workers
}
