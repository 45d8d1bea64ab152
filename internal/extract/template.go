package extract

import (
	"regexp"
	"strings"

	"github.com/mlukasik/deckard/internal/collection"
	"github.com/mlukasik/deckard/internal/htmltext"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// frontSideToken embeds the rendered question into the answer format.
const frontSideToken = "{{FrontSide}}"

// RenderTemplates produces cards by substituting field values into each
// model's question/answer formats. Rows whose model cannot be resolved
// are skipped, except that a sole decoded model is applied to every row
// (the same id-drift fallback the other strategies use).
func RenderTemplates(models map[string]collection.Model, rows []collection.CardRow) []Card {
	var sole *collection.Model
	if len(models) == 1 {
		for _, model := range models {
			m := model
			sole = &m
		}
	}

	var cards []Card
	for _, row := range rows {
		model := sole
		if model == nil {
			if entry, ok := models[row.ModelID]; ok {
				model = &entry
			} else {
				continue
			}
		}
		if len(model.Templates) == 0 {
			continue
		}

		values := fieldValues(*model, row.Fields)
		tmpl := pickTemplate(*model, row.Ord)

		question := substitute(tmpl.Qfmt, values)
		answer := strings.ReplaceAll(tmpl.Afmt, frontSideToken, question)
		answer = substitute(answer, values)

		front := htmltext.Normalize(question)
		back := htmltext.Normalize(answer)

		if card, ok := makeCard(front, back); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// fieldValues maps the model's field names to the note's normalized
// values, in field-definition order.
func fieldValues(model collection.Model, rawFields string) map[string]string {
	values := collection.SplitFields(rawFields)
	byName := make(map[string]string, len(model.Fields))
	for i, field := range model.Fields {
		if i < len(values) {
			byName[field.Name] = values[i]
		} else {
			byName[field.Name] = ""
		}
	}
	return byName
}

// pickTemplate finds the template declaring the card's ordinal, falling
// back to the positional template at that index, else the first one.
func pickTemplate(model collection.Model, ord int) collection.Template {
	for _, tmpl := range model.Templates {
		if tmpl.Ord == ord {
			return tmpl
		}
	}
	if ord >= 0 && ord < len(model.Templates) {
		return model.Templates[ord]
	}
	return model.Templates[0]
}

// substitute replaces every {{name}} placeholder with its mapped value,
// or the empty string when the name is unknown. Names are trimmed of
// surrounding whitespace.
func substitute(format string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(format, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		return values[name]
	})
}
