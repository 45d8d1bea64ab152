package extract

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mlukasik/deckard/internal/collection"
)

// ErrNoCardsProduced means every extraction strategy yielded zero cards.
// It is a hard failure: the caller surfaces it so the user can adjust the
// field mapping, never a silent empty deck.
var ErrNoCardsProduced = errors.New("extract: no cards produced by any strategy")

// Strategy names which extraction path produced the cards. The order of
// the chain is a contract: explicit mapping, then template rendering,
// then the naive heuristic.
type Strategy string

const (
	StrategyMapping  Strategy = "mapping"
	StrategyTemplate Strategy = "template"
	StrategyNaive    Strategy = "naive"
)

// Result carries the extracted cards plus diagnostic counts so a chain
// that degraded to a weaker strategy is still visible to the caller.
type Result struct {
	Cards     []Card
	Strategy  Strategy
	NotesSeen int
	RowsSeen  int
}

// FromCollection runs the strategy chain against an extracted collection
// database. A supplied mapping short-circuits to strategy one; otherwise
// template rendering is attempted and the naive heuristic is the last
// resort. Zero cards after all strategies is ErrNoCardsProduced.
func FromCollection(dbPath string, mapping *DeckMapping) (*Result, error) {
	db, err := collection.OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	noteRows, err := collection.ReadNotes(db)
	if err != nil {
		return nil, err
	}

	// Card rows are optional input: a collection without a readable
	// cards table still imports via the notes-only paths.
	cardRows, err := collection.ReadCardRows(db)
	if err != nil {
		log.Printf("WARNING: could not read card rows, using notes only: %v", err)
		cardRows = nil
	}

	result := &Result{NotesSeen: len(noteRows), RowsSeen: len(cardRows)}

	notes := make([]Note, len(noteRows))
	for i, row := range noteRows {
		notes[i] = Note{ModelID: row.ModelID, Values: collection.SplitFields(row.Fields)}
	}

	if mapping != nil {
		result.Strategy = StrategyMapping
		result.Cards = ApplyMapping(*mapping, notes)
	} else {
		models, err := collection.ReadModels(db)
		if err != nil {
			return nil, err
		}

		result.Strategy = StrategyTemplate
		result.Cards = RenderTemplates(models, cardRows)

		if len(result.Cards) == 0 {
			result.Strategy = StrategyNaive
			if len(cardRows) > 0 {
				fieldLists := make([][]string, len(cardRows))
				for i, row := range cardRows {
					fieldLists[i] = collection.SplitFields(row.Fields)
				}
				result.Cards = NaiveCards(fieldLists)
			} else {
				fieldLists := make([][]string, len(notes))
				for i, note := range notes {
					fieldLists[i] = note.Values
				}
				result.Cards = NaiveCards(fieldLists)
			}
		}
	}

	if len(result.Cards) == 0 {
		return nil, fmt.Errorf("%w (%d notes, %d card rows)", ErrNoCardsProduced, result.NotesSeen, result.RowsSeen)
	}
	return result, nil
}

// FromNotes runs the mapping strategy alone over already-split notes.
// This is the rebuild path: archived source notes plus a stored mapping,
// no package re-read.
func FromNotes(mapping DeckMapping, notes []Note) (*Result, error) {
	result := &Result{
		Strategy:  StrategyMapping,
		NotesSeen: len(notes),
		Cards:     ApplyMapping(mapping, notes),
	}
	if len(result.Cards) == 0 {
		return nil, fmt.Errorf("%w (%d notes)", ErrNoCardsProduced, result.NotesSeen)
	}
	return result, nil
}

// NaiveCards is the weakest strategy: the first non-empty field becomes
// the front, every remaining non-empty field joins the back.
func NaiveCards(fieldLists [][]string) []Card {
	var cards []Card
	for _, values := range fieldLists {
		var nonEmpty []string
		for _, value := range values {
			if value != "" {
				nonEmpty = append(nonEmpty, value)
			}
		}
		if len(nonEmpty) == 0 {
			continue
		}

		front := nonEmpty[0]
		back := strings.Join(nonEmpty[1:], "\n")
		if card, ok := makeCard(front, back); ok {
			cards = append(cards, card)
		}
	}
	return cards
}
