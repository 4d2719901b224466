package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hostkita/panelstore/internal/models"
)

var statusNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, 3, DaysLeft(statusNow.AddDate(0, 0, 3), statusNow))
	// Partial days round up.
	assert.Equal(t, 3, DaysLeft(statusNow.Add(49*time.Hour), statusNow))
	assert.Equal(t, 1, DaysLeft(statusNow.Add(time.Hour), statusNow))
	assert.Equal(t, 0, DaysLeft(statusNow, statusNow))
	assert.Equal(t, -2, DaysLeft(statusNow.AddDate(0, 0, -2), statusNow))
}

func TestDaysPast(t *testing.T) {
	assert.Equal(t, 8, DaysPast(statusNow.AddDate(0, 0, -8), statusNow))
	// Partial days round down: 7.5 days past is still within a 8-day grace.
	assert.Equal(t, 7, DaysPast(statusNow.Add(-180*time.Hour), statusNow))
	assert.Equal(t, 0, DaysPast(statusNow, statusNow))
	assert.Equal(t, -3, DaysPast(statusNow.AddDate(0, 0, 3), statusNow))
}

func TestDeriveStatus(t *testing.T) {
	future := statusNow.AddDate(0, 0, 10)
	past := statusNow.AddDate(0, 0, -1)

	tests := []struct {
		name            string
		remoteSuspended bool
		suspendBy       string
		expiresAt       time.Time
		want            string
	}{
		{"running and valid", false, "", future, models.StatusActive},
		{"suspended by sweeper", true, models.SuspendByAuto, past, models.StatusSuspended},
		{"suspended with no local owner", true, "", future, models.StatusSuspended},
		{"admin lock", true, models.SuspendByAdmin, future, models.StatusAdminLocked},
		{"admin lock on expired record", true, models.SuspendByAdmin, past, models.StatusAdminLocked},
		{"expired but panel still running", false, "", past, models.StatusExpiredRunning},
		{"stale local flag without remote suspension", false, models.SuspendByAdmin, future, models.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.remoteSuspended, tt.suspendBy, tt.expiresAt, statusNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatus_SuspendOwnerDecidesLockKind(t *testing.T) {
	// The same remote suspension reads as a lock or a plain suspension
	// purely from the local owner flag.
	past := statusNow.AddDate(0, 0, -5)
	asAuto := DeriveStatus(true, models.SuspendByAuto, past, statusNow)
	asAdmin := DeriveStatus(true, models.SuspendByAdmin, past, statusNow)
	assert.Equal(t, models.StatusSuspended, asAuto)
	assert.Equal(t, models.StatusAdminLocked, asAdmin)
}
