// Package scheduler computes the next scheduling state of a card from a
// review rating. Two regimes apply: short learning steps for new cards
// and multiplicative day-scale intervals for review cards. All compute
// paths are pure; only Commit persists.
package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mlukasik/deckard/internal/entities"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Ratings lists every rating in grading order.
var Ratings = []Rating{Again, Hard, Good, Easy}

// ErrInvalidRating is returned for ratings outside Again..Easy.
var ErrInvalidRating = errors.New("scheduler: invalid rating")

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("rating(%d)", int(r))
}

// ParseRating converts a rating name into a Rating.
func ParseRating(name string) (Rating, error) {
	switch name {
	case "again":
		return Again, nil
	case "hard":
		return Hard, nil
	case "good":
		return Good, nil
	case "easy":
		return Easy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, name)
}

// Review applies the rating to the card's scheduling state at the given
// time and returns the updated card. The input is not mutated and
// nothing is persisted. A card is in the new regime while it has neither
// an interval nor successful repetitions.
func Review(card entities.Card, rating Rating, now time.Time) entities.Card {
	if card.Interval == 0 && card.Reps == 0 {
		return reviewNew(card, rating, now)
	}
	return reviewExisting(card, rating, now)
}

func reviewNew(card entities.Card, rating Rating, now time.Time) entities.Card {
	switch rating {
	case Again:
		card.Lapses++
		card.Ease = flooredEase(card.Ease - 0.2)
		card.Due = now.Add(1 * time.Minute)
	case Hard:
		card.Reps++
		card.Ease = flooredEase(card.Ease - 0.15)
		card.Due = now.Add(6 * time.Minute)
	case Good:
		card.Reps++
		card.Due = now.Add(10 * time.Minute)
	case Easy:
		card.Reps++
		card.Ease += 0.15
		card.Interval = 4
		card.Due = addDays(now, 4)
	}
	return card
}

func reviewExisting(card entities.Card, rating Rating, now time.Time) entities.Card {
	switch rating {
	case Again:
		card.Reps = 0
		card.Lapses++
		card.Interval = 0
		card.Ease = flooredEase(card.Ease - 0.2)
		card.Due = now.Add(10 * time.Minute)
	case Hard:
		card.Reps++
		card.Ease = flooredEase(card.Ease - 0.15)
		card.Interval = cappedInterval(math.Max(card.Interval, 1) * 1.2)
		card.Due = addDays(now, card.Interval)
	case Good:
		card.Reps++
		if card.Interval == 0 {
			card.Interval = 1
		} else {
			card.Interval = cappedInterval(card.Interval * card.Ease)
		}
		card.Due = addDays(now, card.Interval)
	case Easy:
		card.Reps++
		card.Ease += 0.15
		if card.Interval == 0 {
			card.Interval = 3
		} else {
			card.Interval = cappedInterval(card.Interval * card.Ease * 1.3)
		}
		card.Due = addDays(now, card.Interval)
	}
	return card
}

// maxIntervalDays bounds multiplicative interval growth at a century;
// unbounded intervals overflow the duration math long before they mean
// anything to a learner.
const maxIntervalDays = 36500

func flooredEase(ease float64) float64 {
	return math.Max(entities.MinEase, ease)
}

func cappedInterval(days float64) float64 {
	return math.Min(days, maxIntervalDays)
}

func addDays(now time.Time, days float64) time.Time {
	whole := math.Floor(days)
	frac := days - whole
	return now.AddDate(0, 0, int(whole)).Add(time.Duration(frac * 24 * float64(time.Hour)))
}

// CardStore persists a card's updated scheduling state.
type CardStore interface {
	SaveCard(card *entities.Card) error
}

// Commit applies the rating and persists the resulting state, returning
// the updated card.
func Commit(store CardStore, card entities.Card, rating Rating, now time.Time) (entities.Card, error) {
	updated := Review(card, rating, now)
	if err := store.SaveCard(&updated); err != nil {
		return entities.Card{}, fmt.Errorf("failed to save reviewed card %d: %w", card.ID, err)
	}
	return updated, nil
}

// Outcome is one non-committed preview result: the scheduling state the
// rating would produce plus a short human label for the delay.
type Outcome struct {
	Ease     float64   `json:"ease"`
	Interval float64   `json:"interval"`
	Reps     int       `json:"reps"`
	Lapses   int       `json:"lapses"`
	Due      time.Time `json:"due"`
	Label    string    `json:"label"`
}

// Preview computes the outcome of every rating without persisting.
func Preview(card entities.Card, now time.Time) map[Rating]Outcome {
	outcomes := make(map[Rating]Outcome, len(Ratings))
	for _, rating := range Ratings {
		next := Review(card, rating, now)
		outcomes[rating] = Outcome{
			Ease:     next.Ease,
			Interval: next.Interval,
			Reps:     next.Reps,
			Lapses:   next.Lapses,
			Due:      next.Due,
			Label:    DelayLabel(next.Due.Sub(now)),
		}
	}
	return outcomes
}

// DelayLabel renders a review delay the way grading buttons show it:
// sub-hour delays as "<Nm" to the nearest minute, sub-day delays as
// "<Nh" to the nearest hour, longer delays as "Nd" to the nearest day.
func DelayLabel(delay time.Duration) string {
	switch {
	case delay < time.Hour:
		return fmt.Sprintf("<%dm", int(delay.Round(time.Minute)/time.Minute))
	case delay < 24*time.Hour:
		return fmt.Sprintf("<%dh", int(delay.Round(time.Hour)/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(math.Round(delay.Hours()/24)))
	}
}
