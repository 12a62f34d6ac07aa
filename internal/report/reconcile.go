package report

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zulandar/crashcalc/internal/models"
	"gorm.io/gorm"
)

// Correction records a report whose stored total disagreed with its parts.
type Correction struct {
	ReportID   uint
	Stored     decimal.Decimal
	Computed   decimal.Decimal
	PartsFixed int
}

// ReconcileTotals recomputes every part total from price and qty and every
// report total from its parts, rewriting the rows that drifted. updated_at
// is left untouched. It returns one Correction per report that changed.
func ReconcileTotals(db *gorm.DB) ([]Correction, error) {
	var ids []uint
	if err := db.Model(&models.Report{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("report: reconcile: list reports: %w", err)
	}
	return reconcileIDs(db, ids)
}

// reconcileIDs reconciles each report in ids. Reports deleted since the ids
// were listed are skipped.
func reconcileIDs(db *gorm.DB, ids []uint) ([]Correction, error) {
	var corrections []Correction
	for _, id := range ids {
		var c *Correction
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			c, err = reconcileOne(tx, id)
			return err
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return corrections, err
		}
		if c != nil {
			corrections = append(corrections, *c)
		}
	}
	return corrections, nil
}

func reconcileOne(tx *gorm.DB, id uint) (*Correction, error) {
	r, err := lockReport(tx, id)
	if err != nil {
		return nil, err
	}

	var parts []models.Part
	if err := tx.Where("report_id = ?", id).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("report: reconcile %d: load parts: %w", id, err)
	}

	fixed := 0
	computed := decimal.Zero
	for _, p := range parts {
		want := models.LineTotal(p.Price, p.Qty)
		if !want.Equal(p.Total) {
			if err := tx.Model(&models.Part{}).Where("id = ?", p.ID).
				UpdateColumn("total", want).Error; err != nil {
				return nil, fmt.Errorf("report: reconcile part %d: %w", p.ID, err)
			}
			fixed++
		}
		computed = computed.Add(want)
	}

	if fixed == 0 && computed.Equal(r.Total) {
		return nil, nil
	}
	if !computed.Equal(r.Total) {
		if err := tx.Model(&models.Report{}).Where("id = ?", id).
			UpdateColumn("total", computed).Error; err != nil {
			return nil, fmt.Errorf("report: reconcile %d: %w", id, err)
		}
	}
	return &Correction{ReportID: id, Stored: r.Total, Computed: computed, PartsFixed: fixed}, nil
}
