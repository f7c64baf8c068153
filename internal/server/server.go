// Package server exposes the JSON API consumed by the dashboard.
//
// Routes:
//
//	GET  /health             → liveness probe
//	GET  /bids               → stored bids, newest first
//	POST /collect            → on-demand collection run
//	POST /bids/:id/favorite  → toggle the favorite flag
//	GET  /metrics            → Prometheus metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bidwatch/internal/metrics"
	"bidwatch/internal/pipeline"
	"bidwatch/internal/scheduler"
	"bidwatch/internal/store"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second // /collect waits for a full run
	idleTimeout  = 60 * time.Second

	version = "1.0.0"
)

// Trigger starts an on-demand collection run. Satisfied by
// scheduler.Scheduler.
type Trigger interface {
	TriggerNow(ctx context.Context) (pipeline.Stats, error)
}

// Handler holds the API dependencies.
type Handler struct {
	bids  store.BidStore
	sched Trigger
	reg   *metrics.Registry
	log   *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(bids store.BidStore, sched Trigger, reg *metrics.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{bids: bids, sched: sched, reg: reg, log: log}
}

// Router builds the gin engine with all routes mounted.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)
	router.GET("/bids", h.listBids)
	router.POST("/collect", h.collect)
	router.POST("/bids/:id/favorite", h.toggleFavorite)
	if h.reg != nil {
		router.GET("/metrics", gin.WrapH(h.reg.Handler()))
	}
	return router
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func (h *Handler) NewHTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      h.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bidwatch",
		"version": version,
	})
}

func (h *Handler) listBids(c *gin.Context) {
	bids, err := h.bids.ListAll(c.Request.Context())
	if err != nil {
		h.log.Error("list bids failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bids"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
}

// collect runs a collection synchronously and reports the run stats. When a
// run is already in progress the request is told to retry rather than
// queued behind it.
func (h *Handler) collect(c *gin.Context) {
	stats, err := h.sched.TriggerNow(c.Request.Context())
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "collection run failed", "stats": stats})
	default:
		c.JSON(http.StatusOK, gin.H{"stats": stats})
	}
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bid id"})
		return
	}
	if err := h.bids.ToggleFavorite(c.Request.Context(), id); err != nil {
		h.log.Error("toggle favorite failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
