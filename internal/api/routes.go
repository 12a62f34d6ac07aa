package api

import (
	"github.com/gin-gonic/gin"
	"github.com/zulandar/crashcalc/internal/metrics"
	"github.com/zulandar/crashcalc/internal/models"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, h *handlers, m *metrics.Metrics) {
	api := router.Group("/api")
	api.GET("/health", h.health)

	reports := api.Group("/reports")
	reports.GET("", h.listReports(""))
	reports.GET("/pending", h.listReports(models.StatusPending))
	reports.GET("/:id", h.getReport)
	reports.POST("", h.createReport)
	reports.POST("/from-n8n", h.createInboundReport)
	reports.PUT("/:id/status", h.setStatus)
	reports.PUT("/:id", h.updateReport)
	reports.PUT("/by-incident/:incident_id", h.updateByIncident)
	reports.DELETE("/:id", h.deleteReport)
	reports.POST("/:id/parts", h.addPart)

	parts := api.Group("/parts")
	parts.PUT("/:id", h.updatePart)
	parts.DELETE("/:id", h.deletePart)

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
}
