package repository

import (
	"encoding/json"
	"fmt"

	"github.com/hostkita/panelstore/internal/models"
)

// Document is the decoded form of the persisted document: the subscription
// list plus the settings singleton. On the wire it is a single flat JSON
// array in which the settings entry carries the reserved sentinel id.
type Document struct {
	Subscriptions []models.Subscription
	Settings      models.Settings
}

// settingsEntry is the wire shape of the settings sentinel.
type settingsEntry struct {
	ID string `json:"id"`
	models.Settings
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		Settings: models.Settings{Prices: map[string]int64{}},
	}
}

// FindByServerID returns the subscription tracking the given remote server,
// or nil.
func (d *Document) FindByServerID(serverID int) *models.Subscription {
	for i := range d.Subscriptions {
		if d.Subscriptions[i].ServerID() == serverID {
			return &d.Subscriptions[i]
		}
	}
	return nil
}

// FindByUsername returns the first subscription owned by username, or nil.
func (d *Document) FindByUsername(username string) *models.Subscription {
	for i := range d.Subscriptions {
		if d.Subscriptions[i].Username == username {
			return &d.Subscriptions[i]
		}
	}
	return nil
}

// RemoveByServerID deletes the subscription tracking serverID, reporting
// whether a record was removed.
func (d *Document) RemoveByServerID(serverID int) bool {
	for i := range d.Subscriptions {
		if d.Subscriptions[i].ServerID() == serverID {
			d.Subscriptions = append(d.Subscriptions[:i], d.Subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// encode renders the document as the flat wire array.
func (d *Document) encode() ([]byte, error) {
	entries := make([]json.RawMessage, 0, len(d.Subscriptions)+1)

	settings, err := json.Marshal(settingsEntry{ID: models.SettingsID, Settings: d.Settings})
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	entries = append(entries, settings)

	for i := range d.Subscriptions {
		raw, err := json.Marshal(&d.Subscriptions[i])
		if err != nil {
			return nil, fmt.Errorf("marshal subscription %s: %w", d.Subscriptions[i].ID, err)
		}
		entries = append(entries, raw)
	}

	return json.Marshal(entries)
}

// decode parses the wire array, splitting the settings sentinel from the
// subscription records. Empty input yields a fresh document.
func decode(data []byte) (*Document, error) {
	doc := NewDocument()
	if len(data) == 0 {
		return doc, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	for _, raw := range entries {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("probe entry: %w", err)
		}

		if probe.ID == models.SettingsID {
			var entry settingsEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil, fmt.Errorf("unmarshal settings: %w", err)
			}
			doc.Settings = entry.Settings
			continue
		}

		var sub models.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("unmarshal subscription: %w", err)
		}
		doc.Subscriptions = append(doc.Subscriptions, sub)
	}

	if doc.Settings.Prices == nil {
		doc.Settings.Prices = map[string]int64{}
	}
	return doc, nil
}
