package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scrum/internal/date"
	"scrum/internal/models"
	"scrum/internal/storage/sqlite"
)

const requestIDHeader = "X-Request-ID"

// Server provides HTTP handlers for the Scrum board backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	logger    *slog.Logger
	staticDir string
	today     func() date.Date
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:    router,
		store:     store,
		logger:    logger,
		staticDir: staticDir,
		today:     date.Today,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		workers := api.Group("/workers")
		{
			workers.GET("", s.handleListWorkers)
			workers.POST("", s.handleCreateWorker)
			workers.GET(":ref", s.handleGetWorker)
			workers.DELETE(":ref", s.handleDeleteWorker)
			workers.GET(":ref/tasks", s.handleWorkerTasks)
			workers.GET(":ref/hours", s.handleWorkerHours)
			workers.GET(":ref/sprints", s.handleWorkerSprints)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":ref", s.handleGetTask)
			tasks.PATCH(":ref", s.handleUpdateTask)
			tasks.DELETE(":ref", s.handleDeleteTask)
			tasks.POST(":ref/finish", s.handleFinishTask)
			tasks.GET(":ref/hours", s.handleTaskHours)
			tasks.POST(":ref/hours", s.handleAddHours)
			tasks.DELETE(":ref/hours", s.handleRemoveHoursFor)
			tasks.GET(":ref/sprints", s.handleTaskSprints)
		}

		api.GET("/hours/:id", s.handleGetHourEntry)
		api.DELETE("/hours/:id", s.handleDeleteHourEntry)
		api.GET("/order", s.handleOrder)

		sprints := api.Group("/sprints")
		{
			sprints.GET("", s.handleListSprints)
			sprints.POST("", s.handleCreateSprint)
			sprints.GET(":ref", s.handleGetSprint)
			sprints.PATCH(":ref", s.handleUpdateSprint)
			sprints.DELETE(":ref", s.handleDeleteSprint)
			sprints.GET(":ref/report", s.handleSprintReport)
			sprints.GET(":ref/burndown", s.handleSprintBurndown)
			sprints.GET(":ref/next", s.handleSprintNext)
		}
	}

	s.mountStatic()
}

// requestID tags every request with an id, reusing the caller's when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// pathRef reads a worker, task or sprint reference from the path.
func pathRef(c *gin.Context) models.Ref {
	return models.ParseRef(c.Param("ref"))
}

// todayParam reads the optional ?today= override used by the analytics routes.
func (s *Server) todayParam(c *gin.Context) (date.Date, error) {
	raw := c.Query("today")
	if raw == "" {
		return s.today(), nil
	}
	d, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, models.Invalidf("%v", err)
	}
	return d, nil
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCyclicDependency):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDHeader)),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
