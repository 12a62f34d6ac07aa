package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/crashcalc/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// priceScale matches the four decimal places of the money columns.
const priceScale = 4

// PartChanges is a partial part update. Nil fields are left alone; a Qty of
// zero means 1.
type PartChanges struct {
	PartNumber  *string
	Description *string
	Likelihood  *string
	Price       *decimal.Decimal
	Qty         *int
}

// AddPart adds a part to a report and adds its total to the report's total.
func AddPart(db *gorm.DB, reportID uint, in PartInput) (*models.Part, error) {
	part, err := newPart(reportID, in)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, reportID)
		if err != nil {
			return err
		}
		if err := tx.Create(&part).Error; err != nil {
			return fmt.Errorf("report: add part to %d: %w", reportID, err)
		}
		return adjustTotal(tx, r, part.Total)
	})
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// GetPart retrieves a part by id.
func GetPart(db *gorm.DB, id uint) (*models.Part, error) {
	var p models.Part
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report: part %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("report: get part %d: %w", id, err)
	}
	return &p, nil
}

// UpdatePart applies a partial update to a part, recomputes its total from
// the merged price and qty, and shifts the owning report's total by the
// difference.
func UpdatePart(db *gorm.DB, id uint, ch PartChanges) (*models.Part, error) {
	if ch.Price != nil {
		price, err := normalizePrice(*ch.Price)
		if err != nil {
			return nil, err
		}
		ch.Price = &price
	}
	if ch.Qty != nil {
		qty, err := normalizeQty(*ch.Qty)
		if err != nil {
			return nil, err
		}
		ch.Qty = &qty
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		p, err := lockPart(tx, id)
		if err != nil {
			return err
		}

		price, qty := p.Price, p.Qty
		updates := map[string]interface{}{"updated_at": time.Now()}
		setIfPresent(updates, "part_number", ch.PartNumber)
		setIfPresent(updates, "part", ch.Description)
		setIfPresent(updates, "likelihood", ch.Likelihood)
		if ch.Price != nil {
			price = *ch.Price
			updates["price"] = price
		}
		if ch.Qty != nil {
			qty = *ch.Qty
			updates["qty"] = qty
		}
		newTotal := models.LineTotal(price, qty)
		updates["total"] = newTotal

		if err := tx.Model(&models.Part{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("report: update part %d: %w", id, err)
		}

		r, err := lockReport(tx, p.ReportID)
		if err != nil {
			return err
		}
		return adjustTotal(tx, r, newTotal.Sub(p.Total))
	})
	if err != nil {
		return nil, err
	}
	return GetPart(db, id)
}

// DeletePart removes a part and subtracts its total from the owning report.
func DeletePart(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		p, err := lockPart(tx, id)
		if err != nil {
			return err
		}
		r, err := lockReport(tx, p.ReportID)
		if err != nil {
			return err
		}
		if err := adjustTotal(tx, r, p.Total.Neg()); err != nil {
			return err
		}
		if err := tx.Delete(&models.Part{}, id).Error; err != nil {
			return fmt.Errorf("report: delete part %d: %w", id, err)
		}
		return nil
	})
}

// adjustTotal adds delta to the stored total of a locked report and
// refreshes its updated_at.
func adjustTotal(tx *gorm.DB, r *models.Report, delta decimal.Decimal) error {
	total := r.Total.Add(delta)
	if err := tx.Model(&models.Report{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"total":      total,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fmt.Errorf("report: adjust total of %d: %w", r.ID, err)
	}
	r.Total = total
	return nil
}

func lockPart(tx *gorm.DB, id uint) (*models.Part, error) {
	var p models.Part
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report: part %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("report: get part %d for update: %w", id, err)
	}
	return &p, nil
}

// newPart validates in and builds the part row with its computed total.
func newPart(reportID uint, in PartInput) (models.Part, error) {
	price, err := normalizePrice(in.Price)
	if err != nil {
		return models.Part{}, err
	}
	qty, err := normalizeQty(in.Qty)
	if err != nil {
		return models.Part{}, err
	}
	likelihood := in.Likelihood
	if likelihood == "" {
		likelihood = models.DefaultLikelihood
	}
	return models.Part{
		ReportID:    reportID,
		PartNumber:  in.PartNumber,
		Description: in.Description,
		Likelihood:  likelihood,
		Price:       price,
		Qty:         qty,
		Total:       models.LineTotal(price, qty),
	}, nil
}

func buildParts(reportID uint, inputs []PartInput) ([]models.Part, error) {
	parts := make([]models.Part, 0, len(inputs))
	for i, in := range inputs {
		p, err := newPart(reportID, in)
		if err != nil {
			return nil, fmt.Errorf("parts[%d]: %w", i, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func insertParts(tx *gorm.DB, reportID uint, parts []models.Part) error {
	if len(parts) == 0 {
		return nil
	}
	for i := range parts {
		parts[i].ReportID = reportID
	}
	if err := tx.Create(&parts).Error; err != nil {
		return fmt.Errorf("report: insert parts for %d: %w", reportID, err)
	}
	return nil
}

func sumTotals(parts []models.Part) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p.Total)
	}
	return total
}

func normalizePrice(price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("report: price %s must not be negative: %w", price, ErrValidation)
	}
	return price.Round(priceScale), nil
}

func normalizeQty(qty int) (int, error) {
	if qty < 0 {
		return 0, fmt.Errorf("report: qty %d must not be negative: %w", qty, ErrValidation)
	}
	if qty == 0 {
		return 1, nil
	}
	return qty, nil
}
