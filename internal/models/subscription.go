package models

import (
	"time"
)

// Suspend flag owners. Empty string means the subscription is not suspended
// by anyone on our side.
const (
	SuspendByAdmin = "admin"
	SuspendByAuto  = "auto"
)

// Display statuses derived by the reconciler.
const (
	StatusActive         = "active"
	StatusSuspended      = "suspended"
	StatusAdminLocked    = "admin_locked"
	StatusExpiredRunning = "expired_running"
)

// Specs describes the resource limits of a provisioned server. The display
// strings are what the storefront shows; the raw values are what the panel
// was asked for (MB / percent, 0 meaning unlimited).
type Specs struct {
	RAM     string `json:"ram"`
	CPU     string `json:"cpu"`
	Disk    string `json:"disk"`
	RAMRaw  int    `json:"ram_raw"`
	CPURaw  int    `json:"cpu_raw"`
	DiskRaw int    `json:"disk_raw"`
}

// PanelData binds a subscription to the server it tracks on the hosting
// control-plane. ServerID uniquely identifies the remote server; at most one
// subscription exists per server id.
type PanelData struct {
	ServerID   int       `json:"server_id"`
	ServerName string    `json:"server_name"`
	OwnerID    int       `json:"owner_id"`
	OwnerEmail string    `json:"owner_email"`
	Username   string    `json:"username"`
	ExpiresAt  time.Time `json:"expires_at"`
	Specs      Specs     `json:"specs"`
}

// Subscription is the persisted record binding a purchased duration to a
// remote hosting server.
type Subscription struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	ProductName string     `json:"product_name"`
	Days        int        `json:"days"`
	Password    string     `json:"password,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status,omitempty"`
	SuspendBy   string     `json:"suspend_by,omitempty"`
	PanelData   *PanelData `json:"panel_data,omitempty"`
}

// ServerID returns the remote server id this record tracks, or 0 if the
// record has no panel data yet.
func (s *Subscription) ServerID() int {
	if s.PanelData == nil {
		return 0
	}
	return s.PanelData.ServerID
}
