package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLikelihood is applied to parts created without a likelihood.
const DefaultLikelihood = "Possible"

// Part is a priced line item owned by a Report.
type Part struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	ReportID    uint            `gorm:"not null;index"`
	PartNumber  string          `gorm:"size:128"`
	Description string          `gorm:"column:part;size:255"`
	Likelihood  string          `gorm:"size:64;default:Possible"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Qty         int             `gorm:"not null;default:1"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineTotal returns price * qty.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
