package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrum/internal/date"
	"scrum/internal/models"
)

type hoursRequest struct {
	Date   date.Date  `json:"date"`
	Worker models.Ref `json:"worker"`
	Hours  float64    `json:"hours"`
}

// handleTaskHours lists the entries logged against a task.
func (s *Server) handleTaskHours(c *gin.Context) {
	entries, err := s.store.TaskEntries(c.Request.Context(), pathRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entries": entries})
}

// handleAddHours logs hours on a task. A missing date means today.
func (s *Server) handleAddHours(c *gin.Context) {
	var req hoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Worker == (models.Ref{}) {
		s.fail(c, models.Invalidf("worker is required"))
		return
	}
	if req.Date.IsZero() {
		req.Date = s.today()
	}

	entry, err := s.store.AddHours(c.Request.Context(), pathRef(c), req.Date, req.Worker, req.Hours)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"entry": entry})
}

// handleRemoveHoursFor deletes every entry of a task for ?date= and ?worker=.
func (s *Server) handleRemoveHoursFor(c *gin.Context) {
	day, err := date.Parse(c.Query("date"))
	if err != nil {
		s.fail(c, models.Invalidf("%v", err))
		return
	}
	worker := c.Query("worker")
	if worker == "" {
		s.fail(c, models.Invalidf("worker is required"))
		return
	}

	removed, err := s.store.RemoveHoursFor(c.Request.Context(), pathRef(c), day, models.ParseRef(worker))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleGetHourEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry, err := s.store.GetHourEntry(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entry": entry})
}

// handleDeleteHourEntry removes a single entry by id.
func (s *Server) handleDeleteHourEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.RemoveHours(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
