package handlers

import (
	"net/http"

	"booker/internal/http/middleware"
	"booker/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var in services.TaskInput
	if !BindJSONOrError(c, &in) {
		return
	}
	task, err := h.Tasks.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GET /api/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	list, err := h.Tasks.List(middleware.UserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

// GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.Tasks.Get(middleware.UserID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *Handlers) CancelTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.Tasks.Cancel(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
