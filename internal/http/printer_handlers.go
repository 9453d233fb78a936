// Package http exposes a small read-only ops surface next to the bot:
// health plus the printer snapshots, handy for dashboards and probes.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"printerbot-backend/internal/common/middleware"
	"printerbot-backend/internal/features/printing/models"
	printservice "printerbot-backend/internal/features/printing/service"
)

type PrinterHandlers struct {
	service printservice.PrintService
}

func NewPrinterHandlers(service printservice.PrintService) *PrinterHandlers {
	return &PrinterHandlers{service: service}
}

// NewRouter builds the ops router with the standard middleware chain.
func NewRouter(service printservice.PrintService, origin string, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{origin}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	handlers := NewPrinterHandlers(service)
	handlers.Register(router.Group("/api/v1"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "printerbot-backend",
		})
	})

	return router
}

func (h *PrinterHandlers) Register(r *gin.RouterGroup) {
	r.GET("/printer/status", h.getStatus)
	r.GET("/printer/pending", h.getPending)
	r.GET("/printer/completed", h.getCompleted)
}

func (h *PrinterHandlers) getStatus(c *gin.Context) {
	h.sendSnapshot(c, h.service.Status(c.Request.Context()))
}

func (h *PrinterHandlers) getPending(c *gin.Context) {
	h.sendSnapshot(c, h.service.Pending(c.Request.Context()))
}

func (h *PrinterHandlers) getCompleted(c *gin.Context) {
	h.sendSnapshot(c, h.service.Completed(c.Request.Context()))
}

// sendSnapshot reports partial results as 200: a snapshot with an error
// still carries whatever queries succeeded.
func (h *PrinterHandlers) sendSnapshot(c *gin.Context, snap models.PrinterSnapshot) {
	c.JSON(http.StatusOK, gin.H{
		"success": snap.Err == "",
		"data":    snap,
	})
}
