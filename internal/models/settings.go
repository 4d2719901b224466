package models

// SettingsID is the reserved document entry id for the settings singleton.
// It must never collide with a subscription id (those are UUIDs).
const SettingsID = "settings"

// Announcement is a storefront banner message.
type Announcement struct {
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// Settings is the persisted configuration overlay. Prices maps a product
// name (e.g. "panel-1gb") to its base 30-day price; tiers missing from the
// map fall back to the static defaults in the pricing registry.
type Settings struct {
	LogoURL      string           `json:"logo_url"`
	BannerURL    string           `json:"banner_url"`
	Prices       map[string]int64 `json:"prices"`
	Announcement Announcement     `json:"announcement"`
	Maintenance  bool             `json:"maintenance"`
}
