package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/deckard/internal/entities"
	"github.com/mlukasik/deckard/internal/scheduler"
)

// ReviewStore defines database operations for the review flow.
type ReviewStore interface {
	NextDueCard(deckID uint, now time.Time, randomTie bool) (*entities.Card, error)
	GetCardByID(id uint) (*entities.Card, error)
	SaveCard(card *entities.Card) error
}

type ReviewController struct {
	store          ReviewStore
	randomTieBreak bool
}

func NewReviewController(store ReviewStore, randomTieBreak bool) *ReviewController {
	return &ReviewController{store: store, randomTieBreak: randomTieBreak}
}

// NextCard returns the deck's next due card, or 204 when nothing is due.
// GET /api/decks/:id/next
func (rc *ReviewController) NextCard(c *gin.Context) {
	deckID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	card, err := rc.store.NextDueCard(deckID, time.Now(), rc.randomTieBreak)
	if err != nil {
		respondInternalError(c, err, "fetch next due card")
		return
	}
	if card == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, card)
}

type gradeRequest struct {
	Rating string `json:"rating" binding:"required"`
}

// GradeCard applies a rating to a card and persists the new state.
// POST /api/cards/:id/grade
func (rc *ReviewController) GradeCard(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "missing rating")
		return
	}
	rating, err := scheduler.ParseRating(req.Rating)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	card, err := rc.store.GetCardByID(cardID)
	if err != nil {
		respondNotFound(c, "card")
		return
	}

	updated, err := scheduler.Commit(rc.store, *card, rating, time.Now())
	if err != nil {
		respondInternalError(c, err, "save reviewed card")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// PreviewCard returns every rating's outcome without persisting.
// GET /api/cards/:id/preview
func (rc *ReviewController) PreviewCard(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	card, err := rc.store.GetCardByID(cardID)
	if err != nil {
		respondNotFound(c, "card")
		return
	}

	outcomes := scheduler.Preview(*card, time.Now())
	response := make(map[string]scheduler.Outcome, len(outcomes))
	for rating, outcome := range outcomes {
		response[rating.String()] = outcome
	}
	c.JSON(http.StatusOK, response)
}
