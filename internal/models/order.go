package models

import "time"

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Order type constants.
const (
	OrderTypeNew     = "new"
	OrderTypeRenewal = "renewal"
)

// Order is the ephemeral in-memory record of a purchase in progress. Orders
// do not survive a restart; the payment gateway remains queryable by order
// id, so a payment can always be re-verified.
type Order struct {
	OrderID     string     `json:"order_id"`
	Username    string     `json:"username"`
	ProductName string     `json:"product_name"`
	Days        int        `json:"days"`
	Amount      int64      `json:"amount"`
	Password    string     `json:"-"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	PaymentRef  string     `json:"payment_ref,omitempty"`
	QRPayload   string     `json:"qr_payload,omitempty"`
	PanelData   *PanelData `json:"panel_data,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
