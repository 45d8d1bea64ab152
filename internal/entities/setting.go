package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// SettingKeySchemaVersion records the persisted store schema version.
	// A mismatch at startup triggers a destructive drop-and-recreate.
	SettingKeySchemaVersion = "schema_version"

	// Per-deck keys; the deck short name is appended after the prefix.
	SettingKeyPrefixFieldMapping = "field_mapping:"
	SettingKeyPrefixInspection   = "inspection:"
)
