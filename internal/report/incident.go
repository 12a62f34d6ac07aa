package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/crashcalc/internal/models"
	"gorm.io/gorm"
)

const (
	incidentPrefix = "VRD"
	maxIDRetries   = 5
)

var incidentIDPattern = regexp.MustCompile(`^VRD-\d{8}-[0-9A-F]{6}$`)

// GenerateIncidentID returns an id of the form VRD-YYYYMMDD-XXXXXX, where the
// date is now in UTC and the suffix is six uppercase hex characters.
func GenerateIncidentID(now time.Time) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("report: generate incident id: %w", err)
	}
	suffix := strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", incidentPrefix, now.UTC().Format("20060102"), suffix), nil
}

// validIncidentID reports whether s has the generated incident id shape.
func validIncidentID(s string) bool {
	return incidentIDPattern.MatchString(s)
}

// generateUniqueIncidentID generates an incident id not already stored,
// retrying a few times on collision.
func generateUniqueIncidentID(tx *gorm.DB, now time.Time) (string, error) {
	for i := 0; i < maxIDRetries; i++ {
		id, err := GenerateIncidentID(now)
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Report{}).Where("incident_id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("report: check incident id: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("report: no unique incident id after %d attempts", maxIDRetries)
}
