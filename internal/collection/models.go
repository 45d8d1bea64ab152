package collection

import (
	"encoding/json"
	"fmt"
)

// FieldSeparator is the control character joining a note's field values.
const FieldSeparator = "\x1f"

// Field is one named field position of a model.
type Field struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// Template is an optional render template of a model. Ord is the card
// ordinal the template claims; Qfmt/Afmt are the question and answer
// formats with {{field}} placeholders.
type Template struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
	Qfmt string `json:"qfmt"`
	Afmt string `json:"afmt"`
}

// Model describes a note schema: named ordered fields and optional
// templates. Reconstructed per inspection from collection JSON, never
// persisted as a first-class entity.
type Model struct {
	ID        string     `json:"-"`
	Name      string     `json:"name"`
	Fields    []Field    `json:"flds"`
	Templates []Template `json:"tmpls"`
}

// decodeModel validates a single model entry. Entries without fields
// cannot produce cards and are rejected explicitly rather than probed
// downstream.
func decodeModel(id string, raw json.RawMessage) (Model, error) {
	var model Model
	if err := json.Unmarshal(raw, &model); err != nil {
		return Model{}, fmt.Errorf("model %s: %w", id, err)
	}
	if len(model.Fields) == 0 {
		return Model{}, fmt.Errorf("model %s: no field definitions", id)
	}
	model.ID = id
	return model, nil
}

// DecodeModels decodes the collection metadata's models JSON into a map
// keyed by model identifier. Malformed JSON degrades to an empty model
// set; individually invalid entries are skipped. Neither is fatal.
func DecodeModels(modelsJSON string) map[string]Model {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(modelsJSON), &raw); err != nil {
		logWarning("malformed models metadata, continuing without models: %v", err)
		return map[string]Model{}
	}

	models := make(map[string]Model, len(raw))
	for id, entry := range raw {
		model, err := decodeModel(id, entry)
		if err != nil {
			logWarning("skipping model: %v", err)
			continue
		}
		models[id] = model
	}
	return models
}
