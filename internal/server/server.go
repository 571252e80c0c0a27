// Package server exposes the lifecycle engine over HTTP.
//
// The caller identity is taken from the X-Caller header. Authentication of
// that header is the job of whatever fronts this server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
)

// CallerHeader carries the identity invoking an operation.
const CallerHeader = "X-Caller"

// Handler serves the plan API.
type Handler struct {
	Engine  *lifecycle.Engine
	Metrics http.Handler
	Logger  *slog.Logger
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())

	v1 := r.Group("/v1")
	v1.POST("/plans", h.CreatePlan)
	v1.GET("/plans", h.ListPlans)
	v1.GET("/plans/:id", h.GetPlan)
	v1.PUT("/plans/:id", h.UpdatePlan)
	v1.POST("/plans/:id/execute", h.ExecutePlan)
	v1.GET("/plans/:id/execution", h.GetExecution)
	v1.POST("/plans/:id/claim", h.ClaimShare)
	v1.GET("/plans/:id/claims", h.ListClaims)
	v1.GET("/plans/:id/claims/:identity", h.GetClaim)
	v1.GET("/plans/:id/audit", h.AuditTrail)
	v1.GET("/config", h.GetConfig)
	v1.PUT("/config/oracle", h.SetOracle)
	v1.PUT("/config/fee", h.SetExecutionFee)

	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}
	return r
}

// Serve runs the router on addr until ctx is cancelled.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger().DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	switch plan.CodeOf(err) {
	case plan.CodeUnauthorized:
		return http.StatusForbidden
	case plan.CodeInvalidPlan:
		return http.StatusConflict
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if code := plan.CodeOf(err); code != "" {
		body["code"] = code
	}
	if status == http.StatusInternalServerError {
		h.logger().ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		body = gin.H{"error": "internal error"}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func caller(c *gin.Context) plan.Identity {
	return plan.Identity(c.GetHeader(CallerHeader))
}

func planID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan id must be an unsigned integer"})
		return 0, false
	}
	return id, true
}
