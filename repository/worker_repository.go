package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/yeremiapane/local-talent/models"
	"gorm.io/gorm"
)

type WorkerRepo struct{ db *gorm.DB }

func NewWorkerRepo(db *gorm.DB) *WorkerRepo {
	return &WorkerRepo{db: db}
}

const workerOrder = "experience DESC, id ASC"

func (r *WorkerRepo) Create(ctx context.Context, w *models.Worker) error {
	return translate(r.db.WithContext(ctx).Create(w).Error, "insert worker")
}

func (r *WorkerRepo) ByID(ctx context.Context, id uint) (*models.Worker, error) {
	var w models.Worker
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("worker %d", id))
	}
	return &w, nil
}

func (r *WorkerRepo) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Worker{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate(err, "count worker")
	}
	return n > 0, nil
}

func (r *WorkerRepo) List(ctx context.Context) ([]models.Worker, error) {
	out := []models.Worker{}
	if err := r.db.WithContext(ctx).Order(workerOrder).Find(&out).Error; err != nil {
		return nil, translate(err, "list workers")
	}
	return out, nil
}

func (r *WorkerRepo) ListWomen(ctx context.Context) ([]models.Worker, error) {
	out := []models.Worker{}
	if err := r.db.WithContext(ctx).Where("is_woman = ?", true).Order(workerOrder).Find(&out).Error; err != nil {
		return nil, translate(err, "list women workers")
	}
	return out, nil
}

// Search matches term case-insensitively against name, skill and city.
func (r *WorkerRepo) Search(ctx context.Context, term string) ([]models.Worker, error) {
	like := "%" + escapeLike(strings.ToLower(term)) + "%"
	out := []models.Worker{}
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(skill) LIKE ? ESCAPE '!' OR LOWER(city) LIKE ? ESCAPE '!'", like, like, like).
		Order(workerOrder).
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "search workers")
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}
