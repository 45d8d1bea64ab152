package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mlukasik/deckard/internal/apkg"
	"github.com/mlukasik/deckard/internal/extract"
	"github.com/mlukasik/deckard/internal/importer"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 response.
func respondInternalError(c *gin.Context, err error, action string) {
	log.Printf("Failed to %s: %v", action, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to " + action})
}

// respondPipelineError maps the import pipeline's error taxonomy onto
// HTTP statuses: unreadable or incomplete packages are the client's
// problem, an unproductive extraction is unprocessable, and store
// failures stay distinct so the caller knows cards were produced but
// not saved.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apkg.ErrArchiveOpen):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "archive_open"})
	case errors.Is(err, apkg.ErrMissingCollection):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "missing_collection"})
	case errors.Is(err, apkg.ErrExtract):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "extract_failed"})
	case errors.Is(err, extract.ErrNoCardsProduced):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "no_cards_produced"})
	case errors.Is(err, importer.ErrNoMapping):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "no_mapping"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(c, "deck")
	case errors.Is(err, importer.ErrStore):
		log.Printf("Store failure: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "store_failure"})
	default:
		respondInternalError(c, err, "process package")
	}
}

// parseIDParam parses a numeric path parameter; on failure it responds
// 400 and returns ok=false.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+name+" parameter")
		return 0, false
	}
	return uint(value), true
}
