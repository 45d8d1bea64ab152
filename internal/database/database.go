package database

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mlukasik/deckard/internal/entities"
)

// SchemaVersion is the current persisted store layout. The store is a
// local study cache, not a system of record: a version bump drops and
// recreates every table instead of migrating data.
const SchemaVersion = 1

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) migrate() error {
	allModels := []interface{}{
		&entities.Deck{},
		&entities.Card{},
		&entities.SourceNote{},
		&entities.Setting{},
	}

	// Check the persisted schema version before migrating. If it differs
	// from the current one, drop everything and start over.
	if d.DB.Migrator().HasTable(&entities.Setting{}) {
		stored, err := d.storedSchemaVersion()
		if err != nil {
			return err
		}
		if stored != 0 && stored != SchemaVersion {
			log.Printf("WARNING: store schema version %d != %d, recreating all tables", stored, SchemaVersion)
			if err := d.DB.Migrator().DropTable(allModels...); err != nil {
				return fmt.Errorf("failed to drop outdated schema: %w", err)
			}
		}
	}

	if err := d.DB.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return d.SetSetting(entities.SettingKeySchemaVersion, strconv.Itoa(SchemaVersion))
}

func (d *Database) storedSchemaVersion() (int, error) {
	setting, err := d.GetSetting(entities.SettingKeySchemaVersion)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	version, err := strconv.Atoi(setting.Value)
	if err != nil {
		return 0, nil // unreadable marker, treat as unversioned
	}
	return version, nil
}

// DeckInfo is a deck row with live counts for listing.
type DeckInfo struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CardCount int64  `json:"card_count"`
	DueCount  int64  `json:"due_count"`
}

func (d *Database) GetDeckByName(name string) (*entities.Deck, error) {
	var deck entities.Deck
	err := d.DB.Where("name = ?", name).First(&deck).Error
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (d *Database) GetDeckByID(id uint) (*entities.Deck, error) {
	var deck entities.Deck
	err := d.DB.First(&deck, id).Error
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// ImportCards finds or creates the deck by exact name and inserts the
// given cards with their current state. With overwrite set, an existing
// deck has all of its cards deleted first. Cards with both sides empty
// are skipped. Returns the deck ID and the number of inserted cards.
func (d *Database) ImportCards(deckName string, cards []entities.Card, overwrite bool) (uint, int, error) {
	var deckID uint
	inserted := 0

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		var deck entities.Deck
		result := tx.Where("name = ?", deckName).First(&deck)
		if result.Error == gorm.ErrRecordNotFound {
			deck = entities.Deck{Name: deckName}
			if err := tx.Create(&deck).Error; err != nil {
				return fmt.Errorf("failed to create deck %q: %w", deckName, err)
			}
		} else if result.Error != nil {
			return result.Error
		} else if overwrite {
			if err := tx.Where("deck_id = ?", deck.ID).Delete(&entities.Card{}).Error; err != nil {
				return fmt.Errorf("failed to clear deck %q: %w", deckName, err)
			}
		}
		deckID = deck.ID

		for i := range cards {
			card := cards[i]
			if card.IsEmpty() {
				continue
			}
			card.ID = 0
			card.DeckID = deck.ID
			if err := tx.Create(&card).Error; err != nil {
				return fmt.Errorf("failed to insert card: %w", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return deckID, inserted, nil
}

// ListDecks returns all decks with live card counts, ordered
// case-insensitively by name.
func (d *Database) ListDecks(now time.Time) ([]DeckInfo, error) {
	var decks []entities.Deck
	if err := d.DB.Order("name COLLATE NOCASE ASC").Find(&decks).Error; err != nil {
		return nil, err
	}

	infos := make([]DeckInfo, 0, len(decks))
	for _, deck := range decks {
		info := DeckInfo{ID: deck.ID, Name: deck.Name}
		err := d.DB.Model(&entities.Card{}).Where("deck_id = ?", deck.ID).Count(&info.CardCount).Error
		if err != nil {
			return nil, err
		}
		err = d.DB.Model(&entities.Card{}).Where("deck_id = ? AND due <= ?", deck.ID, now).Count(&info.DueCount).Error
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DeleteDeck removes the deck and cascades to its cards and source notes.
func (d *Database) DeleteDeck(id uint) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", id).Delete(&entities.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", id).Delete(&entities.SourceNote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Deck{}, id).Error
	})
}

// NextDueCard returns the card with the smallest due timestamp not after
// now, or nil when nothing is due. With randomTie set, equally due
// candidates are picked from at random.
func (d *Database) NextDueCard(deckID uint, now time.Time, randomTie bool) (*entities.Card, error) {
	order := "due ASC, id ASC"
	if randomTie {
		order = "due ASC, RANDOM()"
	}

	var card entities.Card
	err := d.DB.Where("deck_id = ? AND due <= ?", deckID, now).
		Order(order).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (d *Database) GetCardByID(id uint) (*entities.Card, error) {
	var card entities.Card
	err := d.DB.First(&card, id).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// SaveCard persists the card's current scheduling state.
func (d *Database) SaveCard(card *entities.Card) error {
	return d.DB.Save(card).Error
}

// ReplaceSourceNotes swaps the deck's archived source notes for the given
// set, preserving insertion order for reproducible rebuilds.
func (d *Database) ReplaceSourceNotes(deckID uint, notes []entities.SourceNote) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", deckID).Delete(&entities.SourceNote{}).Error; err != nil {
			return err
		}
		for i := range notes {
			note := notes[i]
			note.ID = 0
			note.DeckID = deckID
			if err := tx.Create(&note).Error; err != nil {
				return fmt.Errorf("failed to store source note: %w", err)
			}
		}
		return nil
	})
}

func (d *Database) GetSourceNotes(deckID uint) ([]entities.SourceNote, error) {
	var notes []entities.SourceNote
	err := d.DB.Where("deck_id = ?", deckID).Order("id ASC").Find(&notes).Error
	return notes, err
}

func (d *Database) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := d.DB.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (d *Database) SetSetting(key, value string) error {
	var setting entities.Setting
	result := d.DB.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return d.DB.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return d.DB.Save(&setting).Error
}

func (d *Database) DeleteSetting(key string) error {
	return d.DB.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
