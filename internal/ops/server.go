// Package ops serves health, metrics and audit lookups for the console process.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"queuebot/internal/live"
	"queuebot/internal/model"
)

// StatusSource reports the push channel state.
type StatusSource interface {
	Status() live.Status
}

// SessionCounter reports open operator sessions.
type SessionCounter interface {
	Count() int
	InFlight() []int64
}

// AuditLister reads recorded action attempts.
type AuditLister interface {
	ListByQueue(ctx context.Context, queueID int64, limit int) ([]*model.ActionAudit, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the components the ops endpoints report on. Audit and Database may be nil.
type Deps struct {
	Live     StatusSource
	Sessions SessionCounter
	Audit    AuditLister
	Database HealthChecker
}

// Audit lookup page sizes.
const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

// NewRouter builds the ops HTTP handler.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"live":      deps.Live.Status(),
			"sessions":  deps.Sessions.Count(),
			"in_flight": deps.Sessions.InFlight(),
		}
		if deps.Database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Database.HealthCheck(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = err.Error()
			} else {
				body["database"] = "ok"
			}
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/audit/:queue_id", func(c *gin.Context) {
		if deps.Audit == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "audit trail disabled"})
			return
		}

		id, err := strconv.ParseInt(c.Param("queue_id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid queue id"})
			return
		}

		limit := defaultAuditLimit
		if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
			limit = min(l, maxAuditLimit)
		}

		entries, err := deps.Audit.ListByQueue(c.Request.Context(), id, limit)
		if err != nil {
			log.Error().Err(err).Int64("queue_id", id).Msg("Failed to list action audit")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit"})
			return
		}
		if entries == nil {
			entries = []*model.ActionAudit{}
		}
		c.JSON(http.StatusOK, entries)
	})

	return router
}

// Run serves the ops endpoints on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Ops server shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("Ops server started")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}
