// Package report provides crash report and part operations. Every function
// takes the storage handle explicitly; callers scope it with WithContext.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/crashcalc/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is wrapped by errors for a missing report, part or incident id.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by errors for rejected input.
	ErrValidation = errors.New("invalid input")
)

// Source identifies which entry point created a report.
type Source int

const (
	// SourceOperator reports get a generated incident id and are sent for enrichment.
	SourceOperator Source = iota
	// SourceInbound reports arrive from the enrichment workflow and have no incident id.
	SourceInbound
)

// PartInput holds the fields of a part to create. A zero Qty means 1 and an
// empty Likelihood means models.DefaultLikelihood.
type PartInput struct {
	PartNumber  string
	Description string
	Likelihood  string
	Price       decimal.Decimal
	Qty         int
}

// CreateOpts holds parameters for creating a report.
type CreateOpts struct {
	Driver         string
	Date           string
	Chassis        string
	Event          string
	AccidentDamage string
	Parts          []PartInput
	Source         Source
}

// ListFilters holds optional filters for listing reports.
type ListFilters struct {
	Status string
}

// Changes is a partial report update. Nil fields are left alone. When
// ReplaceParts is set, Parts replaces every existing part.
type Changes struct {
	Driver         *string
	Date           *string
	Chassis        *string
	Event          *string
	AccidentDamage *string
	Parts          []PartInput
	ReplaceParts   bool
}

// Create persists a new pending report and its parts in one transaction.
// Operator reports get a fresh incident id.
func Create(db *gorm.DB, opts CreateOpts) (*models.Report, error) {
	parts, err := buildParts(0, opts.Parts)
	if err != nil {
		return nil, err
	}

	r := models.Report{
		Driver:         opts.Driver,
		Date:           opts.Date,
		Chassis:        opts.Chassis,
		Event:          opts.Event,
		AccidentDamage: opts.AccidentDamage,
		Status:         models.StatusPending,
		Total:          sumTotals(parts),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if opts.Source == SourceOperator {
			id, err := generateUniqueIncidentID(tx, time.Now())
			if err != nil {
				return err
			}
			r.IncidentID = &id
		}
		if err := tx.Omit(clause.Associations).Create(&r).Error; err != nil {
			return fmt.Errorf("report: create: %w", err)
		}
		return insertParts(tx, r.ID, parts)
	})
	if err != nil {
		return nil, err
	}

	r.Parts = parts
	return &r, nil
}

// Get retrieves a report by id with its parts.
func Get(db *gorm.DB, id uint) (*models.Report, error) {
	var r models.Report
	if err := db.Preload("Parts", orderByID).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report: report %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("report: get %d: %w", id, err)
	}
	return &r, nil
}

// GetByIncidentID retrieves a report by incident id with its parts.
func GetByIncidentID(db *gorm.DB, incidentID string) (*models.Report, error) {
	if !validIncidentID(incidentID) {
		return nil, fmt.Errorf("report: incident %q: %w", incidentID, ErrNotFound)
	}
	var r models.Report
	if err := db.Preload("Parts", orderByID).Where("incident_id = ?", incidentID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report: incident %s: %w", incidentID, ErrNotFound)
		}
		return nil, fmt.Errorf("report: get incident %s: %w", incidentID, err)
	}
	return &r, nil
}

// List returns reports with their parts, most recent first.
func List(db *gorm.DB, filters ListFilters) ([]models.Report, error) {
	q := db.Model(&models.Report{}).Preload("Parts", orderByID)
	if filters.Status != "" {
		if !models.ValidStatus(filters.Status) {
			return nil, invalidStatus(filters.Status)
		}
		q = q.Where("status = ?", filters.Status)
	}

	var reports []models.Report
	if err := q.Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	return reports, nil
}

// Update applies a partial update to the report with the given id.
func Update(db *gorm.DB, id uint, ch Changes) (*models.Report, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, id)
		if err != nil {
			return err
		}
		return applyChanges(tx, r, ch, nil)
	})
	if err != nil {
		return nil, err
	}
	return Get(db, id)
}

// UpdateByIncidentID merges enrichment results into the report with the
// given incident id and marks it active. An empty parts list keeps the
// existing parts. Ids not of the generated shape are never stored and report
// ErrNotFound without a query.
func UpdateByIncidentID(db *gorm.DB, incidentID string, ch Changes) (*models.Report, error) {
	if !validIncidentID(incidentID) {
		return nil, fmt.Errorf("report: incident %q: %w", incidentID, ErrNotFound)
	}
	if ch.ReplaceParts && len(ch.Parts) == 0 {
		ch.ReplaceParts = false
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var r models.Report
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("incident_id = ?", incidentID).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("report: incident %s: %w", incidentID, ErrNotFound)
			}
			return fmt.Errorf("report: get incident %s for update: %w", incidentID, err)
		}
		return applyChanges(tx, &r, ch, map[string]interface{}{"status": models.StatusActive})
	})
	if err != nil {
		return nil, err
	}
	return GetByIncidentID(db, incidentID)
}

// SetStatus moves a report to one of the known statuses.
func SetStatus(db *gorm.DB, id uint, status string) (*models.Report, error) {
	if !models.ValidStatus(status) {
		return nil, invalidStatus(status)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockReport(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("report: set status %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Get(db, id)
}

// Delete removes a report and all of its parts.
func Delete(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockReport(tx, id); err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.Part{}).Error; err != nil {
			return fmt.Errorf("report: delete parts of %d: %w", id, err)
		}
		if err := tx.Delete(&models.Report{}, id).Error; err != nil {
			return fmt.Errorf("report: delete %d: %w", id, err)
		}
		return nil
	})
}

// applyChanges writes ch to r inside tx. extra columns are written as-is.
func applyChanges(tx *gorm.DB, r *models.Report, ch Changes, extra map[string]interface{}) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	setIfPresent(updates, "driver", ch.Driver)
	setIfPresent(updates, "date", ch.Date)
	setIfPresent(updates, "chassis", ch.Chassis)
	setIfPresent(updates, "event", ch.Event)
	setIfPresent(updates, "accident_damage", ch.AccidentDamage)

	if ch.ReplaceParts {
		parts, err := buildParts(r.ID, ch.Parts)
		if err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", r.ID).Delete(&models.Part{}).Error; err != nil {
			return fmt.Errorf("report: clear parts of %d: %w", r.ID, err)
		}
		if err := insertParts(tx, r.ID, parts); err != nil {
			return err
		}
		updates["total"] = sumTotals(parts)
	}

	for k, v := range extra {
		updates[k] = v
	}

	if err := tx.Model(&models.Report{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("report: update %d: %w", r.ID, err)
	}
	return nil
}

// lockReport loads a report for update. Row locks are ignored by SQLite,
// which serializes writers instead.
func lockReport(tx *gorm.DB, id uint) (*models.Report, error) {
	var r models.Report
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report: report %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("report: get %d for update: %w", id, err)
	}
	return &r, nil
}

func setIfPresent(updates map[string]interface{}, column string, v *string) {
	if v != nil {
		updates[column] = *v
	}
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func invalidStatus(status string) error {
	return fmt.Errorf("report: status %q must be one of %s: %w",
		status, strings.Join(models.Statuses, ", "), ErrValidation)
}
