package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/deckard/internal/collection"
	"github.com/mlukasik/deckard/internal/extract"
)

// MappingStore defines the per-deck settings operations the mapping
// endpoints need.
type MappingStore interface {
	FieldMapping(shortName string) (*extract.DeckMapping, error)
	SetFieldMapping(shortName string, mapping extract.DeckMapping) error
	InspectionSnapshot(shortName string) (*collection.Snapshot, error)
}

type MappingController struct {
	store MappingStore
}

func NewMappingController(store MappingStore) *MappingController {
	return &MappingController{store: store}
}

// GetMapping returns the stored field mapping for a deck short name.
// GET /api/mappings/:short
func (mc *MappingController) GetMapping(c *gin.Context) {
	shortName := c.Param("short")

	mapping, err := mc.store.FieldMapping(shortName)
	if err != nil {
		respondInternalError(c, err, "read field mapping")
		return
	}
	if mapping == nil {
		respondNotFound(c, "field mapping")
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// SetMapping stores the field mapping for a deck short name.
// PUT /api/mappings/:short
func (mc *MappingController) SetMapping(c *gin.Context) {
	shortName := c.Param("short")

	var mapping extract.DeckMapping
	if err := c.ShouldBindJSON(&mapping); err != nil {
		respondBadRequest(c, "invalid field mapping payload")
		return
	}
	if len(mapping.Models) == 0 {
		respondBadRequest(c, "field mapping has no models")
		return
	}

	if err := mc.store.SetFieldMapping(shortName, mapping); err != nil {
		respondInternalError(c, err, "store field mapping")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping stored"})
}

// GetSnapshot returns the cached inspection snapshot for a deck short
// name, when one exists.
// GET /api/snapshots/:short
func (mc *MappingController) GetSnapshot(c *gin.Context) {
	shortName := c.Param("short")

	snapshot, err := mc.store.InspectionSnapshot(shortName)
	if err != nil {
		respondInternalError(c, err, "read inspection snapshot")
		return
	}
	if snapshot == nil {
		respondNotFound(c, "inspection snapshot")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
