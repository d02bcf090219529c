package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrum/internal/date"
	"scrum/internal/models"
	"scrum/internal/scheduler"
)

type sprintRequest struct {
	Name  string       `json:"name"`
	Goals []models.Ref `json:"goals"`
	Start date.Date    `json:"start"`
	End   date.Date    `json:"end"`
}

type sprintUpdateRequest struct {
	Start *date.Date `json:"start"`
	End   *date.Date `json:"end"`
}

// handleListSprints returns every sprint.
func (s *Server) handleListSprints(c *gin.Context) {
	sprints, err := s.store.ListSprints(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": sprints})
}

// handleCreateSprint adds a sprint and pulls its goal closure out of the backlog.
func (s *Server) handleCreateSprint(c *gin.Context) {
	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	sprint, err := s.store.AddSprint(c.Request.Context(), req.Name, req.Goals, req.Start, req.End)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}

// handleGetSprint returns the sprint with its tasks in execution order.
func (s *Server) handleGetSprint(c *gin.Context) {
	snap, err := s.store.SprintSnapshot(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"sprint":  snap.Sprint,
		"key":     snap.Sprint.Key().String(),
		"tasks":   snap.Tasks,
		"entries": scheduler.EntriesInSprint(snap),
	})
}

// handleUpdateSprint moves the start and/or end date.
func (s *Server) handleUpdateSprint(c *gin.Context) {
	var req sprintUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Start == nil && req.End == nil {
		s.fail(c, models.Invalidf("start or end is required"))
		return
	}

	var start, end date.Date
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}
	sprint, err := s.store.UpdateSprintDates(c.Request.Context(), pathRef(c), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleDeleteSprint removes a sprint. Task statuses are untouched.
func (s *Server) handleDeleteSprint(c *gin.Context) {
	if err := s.store.RemoveSprint(c.Request.Context(), pathRef(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// snapshotFor loads the sprint in the path together with the reporting date.
func (s *Server) snapshotFor(c *gin.Context) (models.SprintSnapshot, date.Date, bool) {
	today, err := s.todayParam(c)
	if err != nil {
		s.fail(c, err)
		return models.SprintSnapshot{}, date.Date{}, false
	}
	snap, err := s.store.SprintSnapshot(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return models.SprintSnapshot{}, date.Date{}, false
	}
	return snap, today, true
}

// handleSprintReport returns every sprint analytic as of ?today= (default today).
func (s *Server) handleSprintReport(c *gin.Context) {
	snap, today, ok := s.snapshotFor(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"report": scheduler.Analyze(snap, today)})
}

func (s *Server) handleSprintBurndown(c *gin.Context) {
	snap, today, ok := s.snapshotFor(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"burndown": scheduler.Burndown(snap, today)})
}

// handleSprintNext suggests the next task to work on. The task is null once
// everything is finished.
func (s *Server) handleSprintNext(c *gin.Context) {
	snap, err := s.store.SprintSnapshot(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	var next *models.Task
	if t, ok := scheduler.SuggestNextTask(snap); ok {
		next = &t
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": next, "remaining": scheduler.RemainingTasks(snap)})
}
