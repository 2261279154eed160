package service

import (
	"github.com/studomat-dev/studomat-api/internal/models"
)

// AggregateStatus recomputes the cached student counters from the full
// ledger. Total ECTS sums PASSED rows only. Always a full recompute over all
// rows, never an incremental patch.
func AggregateStatus(rows []models.EnrollmentDetail) models.StudentStats {
	var stats models.StudentStats
	for _, row := range rows {
		switch row.Status {
		case models.EnrollmentStatusPassed:
			stats.PassedCount++
			stats.TotalECTS += row.CourseECTS
		case models.EnrollmentStatusFailed:
			stats.FailedCount++
		case models.EnrollmentStatusActive:
			stats.ActiveCount++
		}
	}
	return stats
}
