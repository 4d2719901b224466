package models

import "time"

// ==================== Storefront API DTOs ====================

// CreateOrderRequest starts a purchase or renewal. OrderID is caller-supplied
// so the client can re-poll the same order after a reconnect. Amount is the
// client-declared total, validated server-side against the price table.
type CreateOrderRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=new renewal"`
	Username    string `json:"username" binding:"required,handle"`
	ProductName string `json:"product_name" binding:"required"`
	Days        int    `json:"days" binding:"required,min=1,max=365"`
	Amount      int64  `json:"amount" binding:"required,min=1"`
	Password    string `json:"password"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	Amount      int64      `json:"amount"`
	QRPayload   string     `json:"qr_payload,omitempty"`
	PanelData   *PanelData `json:"panel_data,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ==================== Admin API DTOs ====================

// RenewRequest extends a subscription. ServerID is preferred; Username is a
// fallback lookup for records whose server id is unknown to the caller.
type RenewRequest struct {
	ServerID int    `json:"server_id"`
	Username string `json:"username"`
	Days     int    `json:"days" binding:"required,min=1,max=365"`
}

// SubscriptionView is the reconciler-enriched admin view of one subscription.
type SubscriptionView struct {
	Subscription
	DaysLeft  int    `json:"days_left"`
	Suspended bool   `json:"suspended"`
	Node      string `json:"node,omitempty"`
}

// ==================== Settings DTOs ====================

// PublicSettings is the unauthenticated storefront view of the settings.
type PublicSettings struct {
	LogoURL      string       `json:"logo_url"`
	BannerURL    string       `json:"banner_url"`
	Announcement Announcement `json:"announcement"`
	Maintenance  bool         `json:"maintenance"`
}

// UpdateSettingsRequest replaces every settings field atomically.
type UpdateSettingsRequest struct {
	LogoURL      string           `json:"logo_url"`
	BannerURL    string           `json:"banner_url"`
	Prices       map[string]int64 `json:"prices"`
	Announcement Announcement     `json:"announcement"`
	Maintenance  bool             `json:"maintenance"`
}
