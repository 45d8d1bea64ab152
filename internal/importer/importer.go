// Package importer drives the full pipeline from a package file on disk
// to a persisted deck: archive → locate → extract collection → media →
// card extraction → store, plus the source-note archive that lets a deck
// be rebuilt under a new mapping without the original package.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/deckard/internal/apkg"
	"github.com/mlukasik/deckard/internal/collection"
	"github.com/mlukasik/deckard/internal/database"
	"github.com/mlukasik/deckard/internal/entities"
	"github.com/mlukasik/deckard/internal/extract"
	"github.com/mlukasik/deckard/internal/settingsstore"
)

// ErrStore marks a persistence failure after extraction succeeded, so
// callers can tell the user cards were produced but not saved.
var ErrStore = errors.New("importer: store failure")

// ErrNoMapping is returned by RebuildDeck when no field mapping has
// been stored for the deck.
var ErrNoMapping = errors.New("importer: no field mapping stored for deck")

// Result summarizes one import, including which extraction strategy ran
// and the source counts, so a degraded import is never silent.
type Result struct {
	DeckID      uint             `json:"deck_id"`
	DeckName    string           `json:"deck_name"`
	Inserted    int              `json:"inserted"`
	Strategy    extract.Strategy `json:"strategy"`
	NotesSeen   int              `json:"notes_seen"`
	RowsSeen    int              `json:"rows_seen"`
	MediaCopied int              `json:"media_copied"`
}

type Importer struct {
	db        *database.Database
	settings  *settingsstore.SettingsStore
	mediaRoot string
}

func New(db *database.Database, settings *settingsstore.SettingsStore, mediaRoot string) *Importer {
	return &Importer{db: db, settings: settings, mediaRoot: mediaRoot}
}

// ShortName derives the deck's stable key from the package path: the
// base filename with its extension stripped.
func ShortName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ImportPackage imports the package at path into a deck named after its
// short name. A stored field mapping for that short name is applied when
// present; otherwise the strategy chain decides. With overwrite set, an
// existing deck of the same name has its cards replaced.
func (i *Importer) ImportPackage(path string, overwrite bool) (*Result, error) {
	shortName := ShortName(path)

	archive, err := apkg.Open(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	layout, err := apkg.Locate(archive)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "deckard-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, apkg.ExtractedCollectionFile)
	if err := archive.ExtractEntry(layout.Collection, dbPath); err != nil {
		// Fatal here: without the collection database there is nothing
		// to import. Media extraction failures below are not.
		return nil, err
	}

	mediaIndex := apkg.ReadMediaIndex(archive, layout.Media)
	mediaCopied := apkg.CopyMedia(archive, mediaIndex, i.mediaRoot, shortName)

	mapping, err := i.settings.FieldMapping(shortName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	extracted, err := extract.FromCollection(dbPath, mapping)
	if err != nil {
		return nil, err
	}

	sourceNotes, err := readSourceNotes(dbPath)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cards := make([]entities.Card, len(extracted.Cards))
	for idx, card := range extracted.Cards {
		cards[idx] = entities.Card{
			Front: card.Front,
			Back:  card.Back,
			Ease:  entities.DefaultEase,
			Due:   now,
		}
	}

	deckID, inserted, err := i.db.ImportCards(shortName, cards, overwrite)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := i.db.ReplaceSourceNotes(deckID, sourceNotes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return &Result{
		DeckID:      deckID,
		DeckName:    shortName,
		Inserted:    inserted,
		Strategy:    extracted.Strategy,
		NotesSeen:   extracted.NotesSeen,
		RowsSeen:    extracted.RowsSeen,
		MediaCopied: mediaCopied,
	}, nil
}

// readSourceNotes archives every raw note row for later rebuilds.
func readSourceNotes(dbPath string) ([]entities.SourceNote, error) {
	db, err := collection.OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := collection.ReadNotes(db)
	if err != nil {
		return nil, err
	}

	notes := make([]entities.SourceNote, len(rows))
	for i, row := range rows {
		notes[i] = entities.SourceNote{ModelID: row.ModelID, Fields: row.Fields}
	}
	return notes, nil
}

// InspectPackage returns the inspection snapshot for the package,
// reusing the cached one when the deck was inspected before so the
// mapping step does not re-scan the archive.
func (i *Importer) InspectPackage(path string) (*collection.Snapshot, error) {
	shortName := ShortName(path)

	cached, err := i.settings.InspectionSnapshot(shortName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if cached != nil {
		return cached, nil
	}

	archive, err := apkg.Open(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	layout, err := apkg.Locate(archive)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "deckard-inspect-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, apkg.ExtractedCollectionFile)
	if err := archive.ExtractEntry(layout.Collection, dbPath); err != nil {
		return nil, err
	}

	snapshot, err := collection.Inspect(dbPath, shortName)
	if err != nil {
		return nil, err
	}

	if err := i.settings.SetInspectionSnapshot(shortName, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return snapshot, nil
}

// RebuildDeck re-derives the deck's cards from its archived source notes
// under the currently stored field mapping, replacing the existing
// cards. The original package file is not needed.
func (i *Importer) RebuildDeck(shortName string) (*Result, error) {
	mapping, err := i.settings.FieldMapping(shortName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if mapping == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, shortName)
	}

	deck, err := i.db.GetDeckByName(shortName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	sourceNotes, err := i.db.GetSourceNotes(deck.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	notes := make([]extract.Note, len(sourceNotes))
	for idx, note := range sourceNotes {
		notes[idx] = extract.Note{ModelID: note.ModelID, Values: collection.SplitFields(note.Fields)}
	}

	extracted, err := extract.FromNotes(*mapping, notes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cards := make([]entities.Card, len(extracted.Cards))
	for idx, card := range extracted.Cards {
		cards[idx] = entities.Card{
			Front: card.Front,
			Back:  card.Back,
			Ease:  entities.DefaultEase,
			Due:   now,
		}
	}

	deckID, inserted, err := i.db.ImportCards(shortName, cards, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return &Result{
		DeckID:    deckID,
		DeckName:  shortName,
		Inserted:  inserted,
		Strategy:  extracted.Strategy,
		NotesSeen: extracted.NotesSeen,
	}, nil
}
