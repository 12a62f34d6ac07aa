package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/crashcalc/internal/models"
	"github.com/zulandar/crashcalc/internal/notify"
	"github.com/zulandar/crashcalc/internal/report"
	"gorm.io/gorm"
)

// Dispatcher starts background enrichment for a newly created report.
type Dispatcher interface {
	Dispatch(p notify.Payload)
}

type handlers struct {
	db       *gorm.DB
	notifier Dispatcher
	log      *logrus.Entry
}

func (h *handlers) store(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c.Request.Context())
}

// readObject reads the request body as a JSON object. unwrap enables the
// double-encoded body shim.
func readObject(c *gin.Context, unwrap bool) (object, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if unwrap {
		if body, err = normalizeBody(body); err != nil {
			return nil, err
		}
	}
	return decodeObject(body)
}

// paramID parses a numeric path parameter. ok is false for anything that is
// not a positive integer.
func paramID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "VRD Crash Calculator API is running",
	})
}

func (h *handlers) listReports(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reports, err := report.List(h.store(c), report.ListFilters{Status: status})
		if err != nil {
			respondStoreError(c, err, msgReportNotFound)
			return
		}
		c.JSON(http.StatusOK, newReportViews(reports))
	}
}

func (h *handlers) getReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	r, err := report.Get(h.store(c), id)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}
	c.JSON(http.StatusOK, newReportView(r))
}

func (h *handlers) createReport(c *gin.Context) {
	o, err := readObject(c, false)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := o.createOpts(report.SourceOperator)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := report.Create(h.store(c), opts)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}

	h.log.WithFields(logrus.Fields{"report_id": r.ID, "incident_id": *r.IncidentID}).Info("report created")
	if h.notifier != nil {
		h.notifier.Dispatch(notify.PayloadFromReport(r))
	}
	respondReport(c, http.StatusCreated, "Report created successfully. AI processing started.", newReportView(r))
}

func (h *handlers) createInboundReport(c *gin.Context) {
	o, err := readObject(c, true)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := o.createOpts(report.SourceInbound)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := report.Create(h.store(c), opts)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}

	h.log.WithField("report_id", r.ID).Info("inbound report created")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Report created successfully and marked as PENDING for review",
		"report":  newReportView(r),
		"status":  models.StatusPending,
	})
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending active reviewed"`
}

func (h *handlers) setStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidStatus)
		return
	}
	r, err := report.SetStatus(h.store(c), id, req.Status)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}
	respondReport(c, http.StatusOK, "Report status updated to "+req.Status, newReportView(r))
}

func (h *handlers) updateReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	o, err := readObject(c, false)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := o.changes(false)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := report.Update(h.store(c), id, ch)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}
	respondReport(c, http.StatusOK, "Report updated successfully", newReportView(r))
}

func (h *handlers) updateByIncident(c *gin.Context) {
	incidentID := c.Param("incident_id")
	o, err := readObject(c, true)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := o.changes(true)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := report.UpdateByIncidentID(h.store(c), incidentID, ch)
	if err != nil {
		respondStoreError(c, err, fmt.Sprintf("Report with incident_id %s not found", incidentID))
		return
	}

	h.log.WithFields(logrus.Fields{"report_id": r.ID, "incident_id": incidentID}).Info("enrichment merged")
	respondReport(c, http.StatusOK, "Report updated successfully by incident_id", newReportView(r))
}

func (h *handlers) deleteReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	if err := report.Delete(h.store(c), id); err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}
	respondOK(c, "Report deleted successfully")
}

func (h *handlers) addPart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	o, err := readObject(c, false)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	in, err := o.partInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := report.AddPart(h.store(c), id, in)
	if err != nil {
		respondStoreError(c, err, msgReportNotFound)
		return
	}
	respondPart(c, http.StatusCreated, "Part added successfully", newPartView(p))
}

func (h *handlers) updatePart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgPartNotFound)
		return
	}
	o, err := readObject(c, false)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := o.partChanges()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := report.UpdatePart(h.store(c), id, ch)
	if err != nil {
		respondStoreError(c, err, msgPartNotFound)
		return
	}
	respondPart(c, http.StatusOK, "Part updated successfully", newPartView(p))
}

func (h *handlers) deletePart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		respondError(c, http.StatusNotFound, msgPartNotFound)
		return
	}
	if err := report.DeletePart(h.store(c), id); err != nil {
		respondStoreError(c, err, msgPartNotFound)
		return
	}
	respondOK(c, "Part deleted successfully")
}
