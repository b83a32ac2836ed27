package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskmanager/internal/service/auth"
	"taskmanager/internal/service/task"
)

// ReadyCheck is one dependency checked by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	// RequireToken makes a bearer token mandatory on task endpoints.
	RequireToken bool
	CORSOrigins  []string
	// Location renders the task creation clock.
	Location *time.Location
	Ready    []ReadyCheck
}

type Handler struct {
	auth   *auth.Service
	tasks  *task.Service
	opts   Options
	logger *zap.Logger
}

func NewHandler(authSvc *auth.Service, taskSvc *task.Service, opts Options, logger *zap.Logger) *Handler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Handler{auth: authSvc, tasks: taskSvc, opts: opts, logger: logger}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(h.logger))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(h.opts.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	tasks := r.Group("/")
	tasks.Use(AuthMiddleware(h.auth, h.opts.RequireToken))
	{
		tasks.GET("/tasks", h.ListTasks)
		tasks.POST("/tasks", h.CreateTask)
		tasks.PATCH("/tasks/:id", h.UpdateTaskStatus)
		tasks.GET("/tasks/:id/activity", h.TaskActivity)
		tasks.GET("/board", h.Board)
	}

	return r
}

// Ready reports 503 naming the first dependency that fails its check.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, rc := range h.opts.Ready {
		if err := rc.Check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": rc.Name + "_not_ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
