package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/operation"
	"github.com/loykin/longrun/internal/supervisor"
)

// Router provides embeddable HTTP handlers for the operation supervisor.
// Endpoints:
//   POST {basePath}/start        body: {"duration": 5, "annotations": {...}}
//   POST {basePath}/pause        query: id=...
//   POST {basePath}/resume       query: id=...
//   POST {basePath}/cancel       query: id=...
//   GET  {basePath}/operations   full list join
//   GET  /healthz                store ping
//   GET  /metrics                prometheus text
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	sup      *supervisor.Supervisor
	basePath string
	health   func() error
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/abc" results in /abc/start, /abc/pause, ...
// health is optional; when set it backs /healthz (typically store.Ping).
func NewRouter(sup *supervisor.Supervisor, basePath string, health func() error) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath), health: health}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/pause", r.signalHandler(r.sup.Pause))
	group.POST("/resume", r.signalHandler(r.sup.Resume))
	group.POST("/cancel", r.signalHandler(r.sup.Cancel))
	group.GET("/operations", r.handleOperations)
	g.GET("/healthz", r.handleHealthz)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The returned server can be stopped with its Shutdown or Close method.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, health func() error) (*http.Server, error) {
	r := NewRouter(sup, basePath, health)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type startReq struct {
	Duration    int               `json:"duration"`
	Annotations map[string]string `json:"annotations"`
}

type startResp struct {
	ID string `json:"id"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Duration < 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "duration must not be negative"})
		return
	}
	id, err := r.sup.Start(c.Request.Context(), req.Duration, req.Annotations)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, startResp{ID: id})
}

// signalHandler adapts a supervisor signal method to the common
// ?id=... endpoint shape with sentinel-to-status mapping.
func (r *Router) signalHandler(f func(ctx context.Context, id string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if id == "" {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "id query param required"})
			return
		}
		if err := f(c.Request.Context(), id); err != nil {
			switch {
			case errors.Is(err, supervisor.ErrNotFound):
				writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
			case errors.Is(err, supervisor.ErrTerminal):
				writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
			default:
				writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
			}
			return
		}
		writeJSON(c, http.StatusOK, okResp{OK: true})
	}
}

func (r *Router) handleOperations(c *gin.Context) {
	recs, err := r.sup.List(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []operation.Record{}
	}
	writeJSON(c, http.StatusOK, recs)
}

func (r *Router) handleHealthz(c *gin.Context) {
	if r.health != nil {
		if err := r.health(); err != nil {
			writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
			return
		}
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
