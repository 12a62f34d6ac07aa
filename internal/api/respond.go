package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/crashcalc/internal/report"
)

const (
	msgReportNotFound = "Report not found"
	msgPartNotFound   = "Part not found"
	msgInvalidStatus  = "Invalid status. Must be: pending, active, or reviewed"
)

func respondReport(c *gin.Context, code int, message string, view ReportView) {
	c.JSON(code, gin.H{"success": true, "message": message, "report": view})
}

func respondPart(c *gin.Context, code int, message string, view PartView) {
	c.JSON(code, gin.H{"success": true, "message": message, "part": view})
}

func respondOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// respondStoreError maps a store error to 404 when it wraps report.ErrNotFound
// and 400 otherwise. notFound replaces the message for the 404 case.
func respondStoreError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, report.ErrNotFound) {
		respondError(c, http.StatusNotFound, notFound)
		return
	}
	_ = c.Error(err)
	respondError(c, http.StatusBadRequest, err.Error())
}
