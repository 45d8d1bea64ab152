package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig carries every dependency the router needs, improving
// testability and keeping the constructor signature stable.
type RouterConfig struct {
	Decks          DeckStore
	Importer       PackageImporter
	Review         ReviewStore
	Mappings       MappingStore
	RandomTieBreak bool
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	deckController := NewDeckController(cfg.Decks)
	importController := NewImportController(cfg.Importer)
	reviewController := NewReviewController(cfg.Review, cfg.RandomTieBreak)
	mappingController := NewMappingController(cfg.Mappings)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/decks", deckController.ListDecks)
		api.DELETE("/decks/:id", deckController.DeleteDeck)
		api.GET("/decks/:id/next", reviewController.NextCard)

		api.POST("/import", importController.ImportPackage)
		api.POST("/inspect", importController.InspectPackage)
		api.POST("/rebuild/:short", importController.RebuildDeck)

		api.POST("/cards/:id/grade", reviewController.GradeCard)
		api.GET("/cards/:id/preview", reviewController.PreviewCard)

		api.GET("/mappings/:short", mappingController.GetMapping)
		api.PUT("/mappings/:short", mappingController.SetMapping)
		api.GET("/snapshots/:short", mappingController.GetSnapshot)
	}

	return router
}
