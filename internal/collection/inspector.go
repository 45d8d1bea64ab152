// Package collection reads the relational database embedded in a
// flashcard package: model metadata, notes and card rows.
package collection

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mlukasik/deckard/internal/htmltext"
)

// busyTimeoutMs bounds how long an open waits on a locked database.
const busyTimeoutMs = 5000

// maxFieldSamples caps the rendered sample values kept per field.
const maxFieldSamples = 3

func logWarning(format string, args ...interface{}) {
	log.Printf("WARNING: "+format, args...)
}

// OpenReadOnly opens the extracted collection database read-only with a
// bounded busy-wait.
func OpenReadOnly(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", dbPath, busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open collection database: %w", err)
	}
	return db, nil
}

// ReadModels reads the single metadata row's models column and decodes
// it. A missing row or malformed JSON yields an empty model set.
func ReadModels(db *sql.DB) (map[string]Model, error) {
	var modelsJSON sql.NullString
	err := db.QueryRow(`SELECT models FROM col LIMIT 1`).Scan(&modelsJSON)
	if err == sql.ErrNoRows {
		logWarning("collection has no metadata row")
		return map[string]Model{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection metadata: %w", err)
	}
	if !modelsJSON.Valid || modelsJSON.String == "" {
		return map[string]Model{}, nil
	}
	return DecodeModels(modelsJSON.String), nil
}

// NoteRow is one raw note: its stated model id and the separator-joined
// field blob.
type NoteRow struct {
	ID      int64
	ModelID string
	Fields  string
}

// ReadNotes returns every note row in id order.
func ReadNotes(db *sql.DB) ([]NoteRow, error) {
	rows, err := db.Query(`SELECT id, mid, flds FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRow
	for rows.Next() {
		var note NoteRow
		var mid, flds sql.NullString
		if err := rows.Scan(&note.ID, &mid, &flds); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		note.ModelID = mid.String
		note.Fields = flds.String
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// CardRow is one cards-joined-notes row: the card ordinal into the
// model's templates plus the note's model id and raw fields.
type CardRow struct {
	Ord     int
	ModelID string
	Fields  string
}

// ReadCardRows returns every card row joined to its note, in card order.
func ReadCardRows(db *sql.DB) ([]CardRow, error) {
	rows, err := db.Query(`
		SELECT c.ord, n.mid, n.flds
		FROM cards c JOIN notes n ON c.nid = n.id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []CardRow
	for rows.Next() {
		var card CardRow
		var mid, flds sql.NullString
		if err := rows.Scan(&card.Ord, &mid, &flds); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		card.ModelID = mid.String
		card.Fields = flds.String
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

// SplitFields splits a raw field blob and normalizes each value.
func SplitFields(raw string) []string {
	parts := strings.Split(raw, FieldSeparator)
	values := make([]string, len(parts))
	for i, part := range parts {
		values[i] = htmltext.Normalize(part)
	}
	return values
}

// FieldInfo is one field position of a model with up to three sample
// rendered values. Index is 1-based to match persisted field mappings.
type FieldInfo struct {
	Index   int      `json:"index"`
	Name    string   `json:"name"`
	Samples []string `json:"samples"`
}

// ModelInfo is the snapshot of one model for the mapping step.
type ModelInfo struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	NoteCount int         `json:"note_count"`
	Fields    []FieldInfo `json:"fields"`
}

// Snapshot is the inspection result for a package: every decoded model
// with per-field sample values, keyed by model id. Persisted per deck
// short name so revisiting the mapping step does not re-scan the archive.
type Snapshot struct {
	ShortName string                `json:"short_name"`
	Models    map[string]*ModelInfo `json:"models"`
}

// Inspect opens the extracted collection database read-only and builds a
// snapshot: decoded models plus up to three non-empty sample values per
// field. When exactly one model was decoded, every note is attributed to
// it regardless of the note's own stated model id; packages are known to
// drift note ids away from their metadata. With several models, notes
// are matched strictly by id and unmatched ones are skipped.
func Inspect(dbPath, shortName string) (*Snapshot, error) {
	db, err := OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	models, err := ReadModels(db)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		ShortName: shortName,
		Models:    make(map[string]*ModelInfo, len(models)),
	}
	for id, model := range models {
		info := &ModelInfo{ID: id, Name: model.Name}
		for i, field := range model.Fields {
			info.Fields = append(info.Fields, FieldInfo{Index: i + 1, Name: field.Name})
		}
		snapshot.Models[id] = info
	}

	var sole *ModelInfo
	if len(snapshot.Models) == 1 {
		for _, info := range snapshot.Models {
			sole = info
		}
	}

	notes, err := ReadNotes(db)
	if err != nil {
		return nil, err
	}

	for _, note := range notes {
		info := sole
		if info == nil {
			info = snapshot.Models[note.ModelID]
		}
		if info == nil {
			continue
		}
		info.NoteCount++

		values := SplitFields(note.Fields)
		for i := range info.Fields {
			if i >= len(values) || values[i] == "" {
				continue
			}
			if len(info.Fields[i].Samples) >= maxFieldSamples {
				continue
			}
			info.Fields[i].Samples = append(info.Fields[i].Samples, values[i])
		}
	}

	return snapshot, nil
}
