package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scrum/internal/models"
)

type taskRequest struct {
	Name        string       `json:"name"`
	LengthHours float64      `json:"length_hours"`
	Workers     []models.Ref `json:"workers"`
	Deps        []models.Ref `json:"deps"`
	Description string       `json:"description"`
	CreatedAt   *time.Time   `json:"created_at"`
}

// taskUpdateRequest carries the fields of a partial update; nil fields are left alone.
type taskUpdateRequest struct {
	LengthHours *float64      `json:"length_hours"`
	Description *string       `json:"description"`
	Workers     *[]models.Ref `json:"workers"`
	Deps        *[]models.Ref `json:"deps"`
	Status      *string       `json:"status"`
	StatusAt    *time.Time    `json:"status_at"`
}

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task into the backlog.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	in := models.NewTask{
		Name:        req.Name,
		LengthHours: req.LengthHours,
		Workers:     req.Workers,
		Deps:        req.Deps,
		Description: req.Description,
	}
	if req.CreatedAt != nil {
		in.CreatedAt = *req.CreatedAt
	}
	task, err := s.store.AddTask(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns a task with the hours logged against it.
func (s *Server) handleGetTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := s.store.GetTask(ctx, pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	hours, err := s.store.TaskHours(ctx, models.ByID(task.ID))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task, "key": task.Key().String(), "hours": hours})
}

// handleUpdateTask applies a partial update as one store transaction.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	u := models.TaskUpdate{
		LengthHours: req.LengthHours,
		Description: req.Description,
		Workers:     req.Workers,
		Deps:        req.Deps,
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		u.Status = &status
	}
	if req.StatusAt != nil {
		u.StatusAt = *req.StatusAt
	}

	task, err := s.store.UpdateTask(c.Request.Context(), pathRef(c), u)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task and strips it from its dependents.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.RemoveTask(c.Request.Context(), pathRef(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleFinishTask marks a task finished.
func (s *Server) handleFinishTask(c *gin.Context) {
	task, err := s.store.FinishTask(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleTaskSprints(c *gin.Context) {
	sprints, err := s.store.TaskSprints(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": sprints})
}

// handleOrder returns the execution order for ?goal=a&goal=b.
func (s *Server) handleOrder(c *gin.Context) {
	goals := c.QueryArray("goal")
	if len(goals) == 0 {
		s.fail(c, models.Invalidf("at least one goal is required"))
		return
	}
	tasks, err := s.store.Order(c.Request.Context(), models.ParseRefs(goals))
	if err != nil {
		s.fail(c, err)
		return
	}
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		order = append(order, t.Key().String())
	}
	respondSuccess(c, http.StatusOK, gin.H{"order": order, "tasks": tasks})
}
