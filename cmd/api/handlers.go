package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"web/arkmap/mapview"
	"web/arkmap/metrics"
	"web/arkmap/runner"
	"web/arkmap/viewport"
)

type Server struct {
	svc runner.Service
	// viewCheckPeriod is how often an open WebSocket checks that its view
	// is still mounted.
	viewCheckPeriod time.Duration
}

func NewServer(svc runner.Service) *Server {
	return &Server{svc: svc, viewCheckPeriod: defaultViewCheckPeriod}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrViewNotFound),
		errors.Is(err, runner.ErrCatalogNotFound),
		errors.Is(err, mapview.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, mapview.ErrUnknownCommand):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func newRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/catalogs", s.listCatalogs)
	api.POST("/views", s.mountView)
	api.DELETE("/views/:id", s.unmountView)
	api.GET("/views/:id", s.snapshot)
	api.GET("/views/:id/geojson", s.geoJSON)
	api.GET("/views/:id/summary", s.summary)
	api.POST("/views/:id/events", s.dispatch)
	api.POST("/views/:id/commands/:command", s.exec)
	api.POST("/views/:id/hover", s.hover)
	api.GET("/views/:id/ws", s.serveWs)

	return r
}

func (s *Server) listCatalogs(c *gin.Context) {
	catalogs, err := s.svc.ListCatalogs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalogs)
}

func (s *Server) mountView(c *gin.Context) {
	var req struct {
		CatalogID string `json:"catalogId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	info, err := s.svc.Mount(c.Request.Context(), req.CatalogID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) unmountView(c *gin.Context) {
	if err := s.svc.Unmount(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) snapshot(c *gin.Context) {
	snap, err := s.svc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) geoJSON(c *gin.Context) {
	fc, err := s.svc.GeoJSON(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

func (s *Server) summary(c *gin.Context) {
	summary, err := s.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) dispatch(c *gin.Context) {
	var ev viewport.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := s.svc.Dispatch(c.Request.Context(), c.Param("id"), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) exec(c *gin.Context) {
	cmd, err := mapview.ParseCommand(c.Param("command"))
	if err != nil {
		writeError(c, err)
		return
	}

	snap, err := s.svc.Exec(c.Request.Context(), c.Param("id"), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) hover(c *gin.Context) {
	var req struct {
		LocationID string `json:"locationId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	snap, err := s.svc.Hover(c.Request.Context(), c.Param("id"), req.LocationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
