package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/deckard/internal/database"
)

// DeckStore defines database operations for deck listing and deletion.
type DeckStore interface {
	ListDecks(now time.Time) ([]database.DeckInfo, error)
	DeleteDeck(id uint) error
}

type DeckController struct {
	store DeckStore
}

func NewDeckController(store DeckStore) *DeckController {
	return &DeckController{store: store}
}

// ListDecks returns all decks with card and due-now counts.
// GET /api/decks
func (dc *DeckController) ListDecks(c *gin.Context) {
	decks, err := dc.store.ListDecks(time.Now())
	if err != nil {
		respondInternalError(c, err, "list decks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

// DeleteDeck removes a deck, its cards and its source notes.
// DELETE /api/decks/:id
func (dc *DeckController) DeleteDeck(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := dc.store.DeleteDeck(id); err != nil {
		respondInternalError(c, err, "delete deck")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deck deleted"})
}
