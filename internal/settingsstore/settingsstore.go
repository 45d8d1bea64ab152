// Package settingsstore persists per-deck configuration as JSON values
// in the generic settings table, keyed by deck short name. It holds the
// chosen field mapping and the cached inspection snapshot.
package settingsstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mlukasik/deckard/internal/collection"
	"github.com/mlukasik/deckard/internal/database"
	"github.com/mlukasik/deckard/internal/entities"
	"github.com/mlukasik/deckard/internal/extract"
)

// Store is the injected key→JSON settings collaborator. Writes are
// durable on return; Flush exists for implementations that buffer.
type Store interface {
	Get(key string, out interface{}) (bool, error)
	Put(key string, value interface{}) error
	Flush() error
}

// SettingsStore implements Store on top of the card store's settings
// table.
type SettingsStore struct {
	db *database.Database
}

func New(db *database.Database) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get unmarshals the value stored under key into out. The boolean
// reports whether the key existed.
func (s *SettingsStore) Get(key string, out interface{}) (bool, error) {
	setting, err := s.db.GetSetting(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(setting.Value), out); err != nil {
		return false, fmt.Errorf("failed to decode setting %q: %w", key, err)
	}
	return true, nil
}

// Put marshals the value and stores it under key.
func (s *SettingsStore) Put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", key, err)
	}
	return s.db.SetSetting(key, string(data))
}

// Flush is a no-op: every Put is written through immediately.
func (s *SettingsStore) Flush() error {
	return nil
}

// FieldMapping returns the stored mapping for the deck short name, or
// nil when none has been chosen yet.
func (s *SettingsStore) FieldMapping(shortName string) (*extract.DeckMapping, error) {
	var mapping extract.DeckMapping
	found, err := s.Get(entities.SettingKeyPrefixFieldMapping+shortName, &mapping)
	if err != nil || !found {
		return nil, err
	}
	return &mapping, nil
}

// SetFieldMapping stores the mapping for the deck short name.
func (s *SettingsStore) SetFieldMapping(shortName string, mapping extract.DeckMapping) error {
	return s.Put(entities.SettingKeyPrefixFieldMapping+shortName, mapping)
}

// InspectionSnapshot returns the cached snapshot for the deck short
// name, or nil when the package has not been inspected.
func (s *SettingsStore) InspectionSnapshot(shortName string) (*collection.Snapshot, error) {
	var snapshot collection.Snapshot
	found, err := s.Get(entities.SettingKeyPrefixInspection+shortName, &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

// SetInspectionSnapshot caches the snapshot for the deck short name.
func (s *SettingsStore) SetInspectionSnapshot(shortName string, snapshot *collection.Snapshot) error {
	return s.Put(entities.SettingKeyPrefixInspection+shortName, snapshot)
}
