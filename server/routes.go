package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cidxb/rark/internal/task"
)

const (
	defaultSubmitPriority    = 5
	defaultInterruptPriority = 10
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/tasks", s.handleListTasks)
	s.echo.POST("/tasks", s.handleSubmitTask, s.writeLimiter)
	s.echo.GET("/tasks/:id", s.handleGetTask)
	s.echo.DELETE("/tasks/:id", s.handleCancelTask)
	s.echo.POST("/interrupt", s.handleInterrupt, s.writeLimiter)
}

func (s *Server) handleHealth(c echo.Context) error {
	out := HealthOut{Status: "ok"}
	if active := s.runner.ActiveTask(); active != nil {
		o := toTaskOut(active)
		out.ActiveTask = &o
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListTasks(c echo.Context) error {
	tasks := s.runner.ListTasks()
	out := make([]TaskOut, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskOut(t))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSubmitTask(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	priority := req.Priority
	if priority == 0 {
		priority = defaultSubmitPriority
	}

	t := task.New(req.Name, priority)
	for k, v := range req.Metadata {
		t.Metadata[k] = v
	}
	for _, id := range req.BlockedBy {
		t.BlockedBy[id] = struct{}{}
	}

	if err := s.runner.Kernel.Submit(c.Request().Context(), t); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to submit task").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, toTaskOut(t))
}

func (s *Server) handleGetTask(c echo.Context) error {
	id := c.Param("id")
	t := s.runner.GetTask(id)
	if t == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, toTaskOut(t))
}

func (s *Server) handleCancelTask(c echo.Context) error {
	id := c.Param("id")
	t := s.runner.GetTask(id)
	if t == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	s.runner.Cancel(id)
	return c.JSON(http.StatusOK, map[string]string{"cancelled": id})
}

func (s *Server) handleInterrupt(c echo.Context) error {
	var req InterruptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	priority := req.Priority
	if priority == 0 {
		priority = defaultInterruptPriority
	}

	t := task.New(req.Name, priority)
	for k, v := range req.Metadata {
		t.Metadata[k] = v
	}

	if err := s.runner.Kernel.Interrupt(c.Request().Context(), t); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to interrupt").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, toTaskOut(t))
}
