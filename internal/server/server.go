// Package server exposes the engine over HTTP: the rendered scene, the
// status, the ingest endpoints and the prometheus metrics.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/distopia/districtview/internal/logger"
	"github.com/distopia/districtview/internal/metrics"
	"github.com/distopia/districtview/pkg/engine"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/snapshot"
	"github.com/distopia/districtview/pkg/view"
)

// maxBody bounds ingest request bodies.
const maxBody = 4 << 20

// Server bundles the router and its dependencies.
type Server struct {
	addr    string
	eng     *engine.Engine
	metrics *metrics.Metrics
	log     *slog.Logger
	router  *gin.Engine
}

// New constructs a server with routes and middleware. m and log may be nil.
func New(addr string, eng *engine.Engine, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Access(log))
	if m != nil {
		router.Use(countRequests(m))
	}

	s := &Server{addr: addr, eng: eng, metrics: m, log: log, router: router}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http_listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/scene", s.handleScene)
	api.GET("/map.svg", s.handleMapSVG)
	api.GET("/histograms", s.handleHistograms)
	api.GET("/histograms/:slot", s.handleHistogram)
	api.POST("/snapshots", s.handleSnapshot)
	api.POST("/commands", s.handleCommand)
	api.POST("/viewport", s.handleViewport)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func countRequests(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(route, c.Writer.Status())
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, `<!DOCTYPE html>
<html><head><title>districtview</title><meta http-equiv="refresh" content="2"></head>
<body style="margin:0;background:#111;display:flex;align-items:center;justify-content:center;height:100vh">
<img src="/api/map.svg" alt="district map">
</body></html>`)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Status())
}

func (s *Server) handleScene(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Scene())
}

func (s *Server) handleMapSVG(c *gin.Context) {
	c.Header("Content-Type", "image/svg+xml")
	c.Status(http.StatusOK)
	if err := s.eng.WriteSVG(c.Writer); err != nil {
		s.log.Warn("svg_failed", "error", err)
	}
}

func (s *Server) handleHistograms(c *gin.Context) {
	n := s.eng.HistogramSlots()
	panels := make([]gin.H, 0, n)
	for i := 0; i < n; i++ {
		bars, maximum, err := s.eng.Histogram(i)
		if err != nil {
			continue
		}
		panels = append(panels, gin.H{"slot": i, "maximum": maximum, "bars": bars})
	}
	c.JSON(http.StatusOK, gin.H{"histograms": panels})
}

func (s *Server) handleHistogram(c *gin.Context) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil || slot < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot"})
		return
	}

	if c.Query("format") == "json" {
		bars, maximum, err := s.eng.Histogram(slot)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slot": slot, "maximum": maximum, "bars": bars})
		return
	}

	// render into memory first so errors still get a proper status
	var buf bytes.Buffer
	if err := s.eng.WriteHistogramSVG(slot, &buf); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (s *Server) handleSnapshot(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admitted, err := s.eng.HandleMessage(body)
	if errors.Is(err, snapshot.ErrMalformed) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"admitted": admitted}
	if err != nil {
		resp["stale"] = true
		resp["error"] = err.Error()
	}
	if !admitted {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (s *Server) handleCommand(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.HandleCommand(body); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"focus": s.eng.Focus()})
}

type viewportRequest struct {
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

func (s *Server) handleViewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.Resize(req.Width, req.Height); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.eng.Status())
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, view.ErrNoSlot):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownCommand), errors.Is(err, snapshot.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, metric.ErrUnknownMetric):
		return http.StatusUnprocessableEntity
	case engine.Reason(err) != "other":
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
