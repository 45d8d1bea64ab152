package entities

import (
	"time"
)

// DefaultEase is the ease factor assigned to freshly imported cards.
// MinEase is the floor the scheduler never goes below.
const (
	DefaultEase = 2.5
	MinEase     = 1.3
)

// Deck groups the cards produced by one package import. Identity is the
// unique deck name (the package's short name); re-importing the same name
// overwrites the deck's cards.
type Deck struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:512" json:"name"`
	Cards       []Card       `gorm:"foreignKey:DeckID" json:"cards,omitempty"`
	SourceNotes []SourceNote `gorm:"foreignKey:DeckID" json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Card is a single front/back study unit with its scheduling state.
// Front and back are never both empty; a card failing that is discarded
// before it reaches the store.
type Card struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	DeckID uint   `gorm:"index" json:"deck_id"`
	Front  string `gorm:"type:text" json:"front"`
	Back   string `gorm:"type:text" json:"back"`

	// Scheduling state, mutated only by the scheduler or full re-import.
	Ease     float64   `gorm:"default:2.5" json:"ease"`
	Interval float64   `json:"interval"` // days
	Due      time.Time `json:"due"`
	Reps     int       `json:"reps"`
	Lapses   int       `json:"lapses"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether the card has neither front nor back text.
func (c Card) IsEmpty() bool {
	return c.Front == "" && c.Back == ""
}

// SourceNote preserves a note's raw field data so the deck can be rebuilt
// under a different field mapping without re-reading the package. The
// Fields blob keeps the original single-character separator and is never
// parsed except during rebuild.
type SourceNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeckID    uint      `gorm:"index" json:"deck_id"`
	ModelID   string    `gorm:"size:64" json:"mid"`
	Fields    string    `gorm:"type:text" json:"flds"`
	CreatedAt time.Time `json:"created_at"`
}

func (Deck) TableName() string {
	return "decks"
}

func (Card) TableName() string {
	return "cards"
}

func (SourceNote) TableName() string {
	return "source_notes"
}
