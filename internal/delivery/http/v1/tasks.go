package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/services"
)

type taskResponse struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"program_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Color       string    `json:"color"`
	Priority    string    `json:"priority"`
	OrderIndex  int       `json:"order_index"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		ProgramID:   task.ProgramID,
		Name:        task.Name,
		Description: task.Description,
		Status:      task.Status,
		Color:       task.Color,
		Priority:    task.Priority,
		OrderIndex:  task.OrderIndex,
		Version:     task.Version,
		CreatedAt:   task.CreatedAt,
		ModifiedAt:  task.ModifiedAt,
	}
}

type conflictResponse struct {
	ServerTask    taskResponse `json:"server_task"`
	ClientAttempt any          `json:"client_attempt"`
}

func respondConflict(c *gin.Context, conflict *services.Conflict, attempt any) {
	c.JSON(http.StatusConflict, gin.H{"conflict": conflictResponse{
		ServerTask:    newTaskResponse(conflict.ServerTask),
		ClientAttempt: attempt,
	}})
}

type createTaskRequest struct {
	ProgramID   string `json:"program_id" binding:"required"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Color       string `json:"color"`
	Priority    string `json:"priority"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		ProgramID:   req.ProgramID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Color:       req.Color,
		Priority:    req.Priority,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *handlerImpl) HandleGetProgramTasks(c *gin.Context) {
	programID := c.Param("id")

	tasks, err := h.tasks.GetTasksByProgram(c, programID)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}
	c.JSON(http.StatusOK, response)
}

type updateTaskRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Status          *string `json:"status,omitempty"`
	Color           *string `json:"color,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	task, conflict, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		ID:              c.Param("id"),
		Name:            req.Name,
		Description:     req.Description,
		Status:          req.Status,
		Color:           req.Color,
		Priority:        req.Priority,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}
	if conflict != nil {
		respondConflict(c, conflict, req)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

type setTaskStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (h *handlerImpl) HandleSetTaskStatus(c *gin.Context) {
	var req setTaskStatusRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	task, conflict, err := h.tasks.UpdateTaskStatus(c, services.UpdateTaskStatusParams{
		ID:              c.Param("id"),
		Status:          req.Status,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}
	if conflict != nil {
		respondConflict(c, conflict, req)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

type reorderTaskRequest struct {
	NewIndex        *int   `json:"new_index" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (h *handlerImpl) HandleReorderTask(c *gin.Context) {
	var req reorderTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	task, conflict, err := h.tasks.ReorderTask(c, services.ReorderTaskParams{
		ID:              c.Param("id"),
		NewIndex:        *req.NewIndex,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}
	if conflict != nil {
		respondConflict(c, conflict, req)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	err := h.tasks.DeleteTask(c, c.Param("id"))
	if err != nil {
		abortServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
