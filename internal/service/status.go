package service

import (
	"time"

	"github.com/hostkita/panelstore/internal/models"
)

// DaysLeft returns the whole days remaining until expiry, rounded up. Zero
// or negative means the subscription is past its expiry.
func DaysLeft(expiresAt, now time.Time) int {
	hours := expiresAt.Sub(now).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days
}

// DaysPast returns the whole days elapsed since expiry, rounded down.
// Negative values mean the expiry is still in the future.
func DaysPast(expiresAt, now time.Time) int {
	return int(now.Sub(expiresAt).Hours() / 24)
}

// DeriveStatus computes the display status of a subscription from the
// remote suspend flag, the local suspend owner and the expiry clock. It is
// a pure function; the priority order is fixed:
//
//  1. remotely suspended + admin lock  -> admin_locked
//  2. remotely suspended               -> suspended
//  3. past expiry but still running    -> expired_running
//  4. otherwise                        -> active
func DeriveStatus(remoteSuspended bool, suspendBy string, expiresAt, now time.Time) string {
	switch {
	case remoteSuspended && suspendBy == models.SuspendByAdmin:
		return models.StatusAdminLocked
	case remoteSuspended:
		return models.StatusSuspended
	case DaysLeft(expiresAt, now) <= 0:
		return models.StatusExpiredRunning
	default:
		return models.StatusActive
	}
}
