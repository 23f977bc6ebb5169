package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
)

type WorkerController struct {
	Directory *services.DirectoryService
}

func NewWorkerController(directory *services.DirectoryService) *WorkerController {
	return &WorkerController{Directory: directory}
}

// ListWorkers -> every worker, most experienced first
func (wc *WorkerController) ListWorkers(c *gin.Context) {
	workers, err := wc.Directory.ListWorkers(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of workers", workers)
}

func (wc *WorkerController) GetWorker(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	worker, err := wc.Directory.GetWorker(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Worker details", worker)
}

// AddWorker -> register a worker. Experience may be a number or text like "5 Years".
func (wc *WorkerController) AddWorker(c *gin.Context) {
	var req struct {
		Name       string      `json:"name"`
		Skill      string      `json:"skill"`
		City       string      `json:"city"`
		Phone      string      `json:"phone"`
		Experience interface{} `json:"experience"`
		Category   string      `json:"category"`
	}
	if err := bindJSON(c, &req); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	worker, err := wc.Directory.RegisterWorker(c.Request.Context(), services.RegisterWorkerInput{
		Name:       req.Name,
		Skill:      req.Skill,
		City:       req.City,
		Phone:      req.Phone,
		Experience: req.Experience,
		Category:   req.Category,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Worker added successfully", worker)
}

// Search -> ?q= over name, skill and city; "woman" lists women workers
func (wc *WorkerController) Search(c *gin.Context) {
	workers, err := wc.Directory.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Search results", workers)
}
