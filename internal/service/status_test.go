package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studomat-dev/studomat-api/internal/models"
)

func statusRow(status models.EnrollmentStatus, ects int) models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: models.Enrollment{Status: status},
		CourseECTS: ects,
	}
}

func TestAggregateStatusCountsByStatus(t *testing.T) {
	rows := []models.EnrollmentDetail{
		statusRow(models.EnrollmentStatusPassed, 6),
		statusRow(models.EnrollmentStatusPassed, 4),
		statusRow(models.EnrollmentStatusFailed, 6),
		statusRow(models.EnrollmentStatusActive, 5),
		statusRow(models.EnrollmentStatusActive, 5),
		statusRow(models.EnrollmentStatusActive, 5),
	}

	stats := AggregateStatus(rows)

	assert.Equal(t, 2, stats.PassedCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 3, stats.ActiveCount)
	assert.Equal(t, 10, stats.TotalECTS)
}

func TestAggregateStatusOnlyPassedEarnECTS(t *testing.T) {
	rows := []models.EnrollmentDetail{
		statusRow(models.EnrollmentStatusFailed, 10),
		statusRow(models.EnrollmentStatusActive, 10),
	}

	stats := AggregateStatus(rows)

	assert.Zero(t, stats.TotalECTS)
}

func TestAggregateStatusEmptyLedger(t *testing.T) {
	stats := AggregateStatus(nil)
	assert.Equal(t, models.StudentStats{}, stats)
}
