package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report statuses.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusReviewed = "reviewed"
)

// Statuses lists every valid report status in lifecycle order.
var Statuses = []string{StatusPending, StatusActive, StatusReviewed}

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Report is a vehicle-crash damage report. Total mirrors the sum of its
// parts' totals and is kept in sync by every part mutation.
type Report struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"`
	IncidentID     *string         `gorm:"size:32;uniqueIndex"`
	Driver         string          `gorm:"size:255"`
	Date           string          `gorm:"size:64"`
	Chassis        string          `gorm:"size:128"`
	Event          string          `gorm:"size:255"`
	AccidentDamage string          `gorm:"type:text"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Status         string          `gorm:"size:16;not null;default:pending;index"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time

	Parts []Part `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}
