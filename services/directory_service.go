package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/models"
	"github.com/yeremiapane/local-talent/repository"
	"github.com/yeremiapane/local-talent/utils"
	"go.opentelemetry.io/otel/attribute"
)

type RegisterWorkerInput struct {
	Name  string
	Skill string
	City  string
	Phone string
	// Experience accepts numbers or strings such as "5 Years".
	Experience interface{}
	// Category "women" or "woman" marks the worker as a woman.
	Category string
}

type DirectoryService struct {
	workers *repository.WorkerRepo
}

func NewDirectoryService(workers *repository.WorkerRepo) *DirectoryService {
	return &DirectoryService{workers: workers}
}

func (s *DirectoryService) ListWorkers(ctx context.Context) (workers []models.Worker, err error) {
	ctx, span := startSpan(ctx, "DirectoryService.ListWorkers")
	defer func() { endSpan(span, err) }()

	return s.workers.List(ctx)
}

func (s *DirectoryService) GetWorker(ctx context.Context, id uint) (worker *models.Worker, err error) {
	ctx, span := startSpan(ctx, "DirectoryService.GetWorker", attribute.Int64("worker_id", int64(id)))
	defer func() { endSpan(span, err) }()

	return s.workers.ByID(ctx, id)
}

func (s *DirectoryService) RegisterWorker(ctx context.Context, in RegisterWorkerInput) (worker *models.Worker, err error) {
	ctx, span := startSpan(ctx, "DirectoryService.RegisterWorker")
	defer func() { endSpan(span, err) }()

	w := &models.Worker{
		Name:       strings.TrimSpace(in.Name),
		Skill:      strings.TrimSpace(in.Skill),
		City:       strings.TrimSpace(in.City),
		Phone:      strings.TrimSpace(in.Phone),
		Experience: utils.ParseExperience(in.Experience),
		IsWoman:    isWomanCategory(in.Category),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", w.Name}, {"skill", w.Skill}, {"city", w.City}, {"phone", w.Phone},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", utils.ErrInvalidInput, strings.Join(missing, ", "))
	}

	if err := s.workers.Create(ctx, w); err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"worker_id": w.ID,
		"skill":     w.Skill,
		"city":      w.City,
	}).Info("Worker registered")
	return w, nil
}

// Search returns every worker for a blank query, only women when the query
// mentions "woman", and otherwise matches name, skill or city.
func (s *DirectoryService) Search(ctx context.Context, q string) (workers []models.Worker, err error) {
	ctx, span := startSpan(ctx, "DirectoryService.Search", attribute.String("q", q))
	defer func() { endSpan(span, err) }()

	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return s.workers.List(ctx)
	case strings.Contains(strings.ToLower(q), "woman"):
		return s.workers.ListWomen(ctx)
	default:
		return s.workers.Search(ctx, q)
	}
}

func isWomanCategory(category string) bool {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "women", "woman":
		return true
	}
	return false
}
