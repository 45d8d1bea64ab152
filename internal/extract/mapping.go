// Package extract turns collection notes into front/back cards, trying
// progressively weaker strategies: an explicit field mapping, the model's
// own templates, then a naive first-field heuristic.
package extract

import "strings"

// PartDivider separates multiple field values joined onto one card side.
const PartDivider = "──────── "

// Card is an extracted front/back pair, not yet persisted.
type Card struct {
	Front string
	Back  string
}

// ModelMapping assigns 1-based field indices to the front and back of a
// card. Indices beyond the note's field count are ignored.
type ModelMapping struct {
	FrontIndexes []int `json:"front_indexes"`
	BackIndexes  []int `json:"back_indexes"`
}

// DeckMapping is the persisted user choice of field roles per model.
type DeckMapping struct {
	Models map[string]ModelMapping `json:"models"`
}

// Note is a note prepared for extraction: its stated model id and the
// split, normalized field values.
type Note struct {
	ModelID string
	Values  []string
}

// ApplyMapping produces cards from notes under the given mapping. A
// mapping with exactly one model entry applies to every note regardless
// of the note's stated model id (ids are known to drift from metadata);
// otherwise notes are matched strictly by id and unmatched ones dropped.
func ApplyMapping(mapping DeckMapping, notes []Note) []Card {
	var sole *ModelMapping
	if len(mapping.Models) == 1 {
		for _, mm := range mapping.Models {
			m := mm
			sole = &m
		}
	}

	var cards []Card
	for _, note := range notes {
		mm := sole
		if mm == nil {
			if entry, ok := mapping.Models[note.ModelID]; ok {
				mm = &entry
			} else {
				continue
			}
		}

		front := joinParts(gatherValues(note.Values, mm.FrontIndexes))
		back := joinParts(gatherValues(note.Values, mm.BackIndexes))

		if card, ok := makeCard(front, back); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// gatherValues collects the values at the listed 1-based indices in
// listed order, skipping out-of-range indices and empty values.
func gatherValues(values []string, indexes []int) []string {
	var parts []string
	for _, idx := range indexes {
		if idx < 1 || idx > len(values) {
			continue
		}
		if values[idx-1] == "" {
			continue
		}
		parts = append(parts, values[idx-1])
	}
	return parts
}

func joinParts(parts []string) string {
	return strings.Join(parts, "\n"+PartDivider+"\n")
}

// makeCard applies the shared invariants: a card must always have a
// front, so a back-only result is promoted; an empty pair is dropped.
func makeCard(front, back string) (Card, bool) {
	if front == "" && back != "" {
		front, back = back, ""
	}
	if front == "" {
		return Card{}, false
	}
	return Card{Front: front, Back: back}, true
}
