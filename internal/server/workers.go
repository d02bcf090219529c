package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrum/internal/models"
	"scrum/internal/scheduler"
)

type workerRequest struct {
	Name string `json:"name"`
}

// handleListWorkers returns all workers.
func (s *Server) handleListWorkers(c *gin.Context) {
	workers, err := s.store.ListWorkers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workers": workers})
}

// handleCreateWorker adds a worker.
func (s *Server) handleCreateWorker(c *gin.Context) {
	var req workerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	worker, err := s.store.AddWorker(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"worker": worker})
}

// handleGetWorker returns a worker with its logged and expected hours.
func (s *Server) handleGetWorker(c *gin.Context) {
	ctx := c.Request.Context()
	worker, err := s.store.GetWorker(ctx, pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	hours, err := s.store.WorkerHours(ctx, models.ByID(worker.ID))
	if err != nil {
		s.fail(c, err)
		return
	}
	snaps, err := s.store.SprintSnapshots(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"worker":         worker,
		"key":            worker.Key().String(),
		"hours":          hours,
		"expected_hours": scheduler.WorkerExpectedHours(snaps, worker.ID),
	})
}

// handleDeleteWorker removes a worker and its task assignments.
func (s *Server) handleDeleteWorker(c *gin.Context) {
	if err := s.store.RemoveWorker(c.Request.Context(), pathRef(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleWorkerTasks(c *gin.Context) {
	tasks, err := s.store.WorkerTasks(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleWorkerHours(c *gin.Context) {
	entries, err := s.store.WorkerEntries(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleWorkerSprints(c *gin.Context) {
	sprints, err := s.store.WorkerSprints(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": sprints})
}
