package http

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/deckard/internal/collection"
	"github.com/mlukasik/deckard/internal/importer"
)

// PackageImporter runs the import pipeline against an uploaded package.
type PackageImporter interface {
	ImportPackage(path string, overwrite bool) (*importer.Result, error)
	InspectPackage(path string) (*collection.Snapshot, error)
	RebuildDeck(shortName string) (*importer.Result, error)
}

type ImportController struct {
	importer PackageImporter
}

func NewImportController(imp PackageImporter) *ImportController {
	return &ImportController{importer: imp}
}

// savedUpload writes the multipart "package" file into a temp directory
// under its original filename, so the deck short name derives from the
// name the user uploaded. The cleanup func removes the directory.
func savedUpload(c *gin.Context) (string, func(), bool) {
	file, err := c.FormFile("package")
	if err != nil {
		respondBadRequest(c, "missing 'package' file upload")
		return "", nil, false
	}

	tempDir, err := os.MkdirTemp("", "deckard-upload-*")
	if err != nil {
		respondInternalError(c, err, "store upload")
		return "", nil, false
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	destPath := filepath.Join(tempDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, destPath); err != nil {
		cleanup()
		respondInternalError(c, err, "store upload")
		return "", nil, false
	}
	return destPath, cleanup, true
}

// ImportPackage imports an uploaded package into a deck.
// POST /api/import?overwrite=true
func (ic *ImportController) ImportPackage(c *gin.Context) {
	path, cleanup, ok := savedUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	overwrite := c.DefaultQuery("overwrite", "true") != "false"

	result, err := ic.importer.ImportPackage(path, overwrite)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// InspectPackage returns the model/field snapshot for an uploaded
// package, feeding the field-mapping step.
// POST /api/inspect
func (ic *ImportController) InspectPackage(c *gin.Context) {
	path, cleanup, ok := savedUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	snapshot, err := ic.importer.InspectPackage(path)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// RebuildDeck re-derives a deck's cards from archived source notes under
// the stored mapping.
// POST /api/rebuild/:short
func (ic *ImportController) RebuildDeck(c *gin.Context) {
	shortName := c.Param("short")
	if shortName == "" {
		respondBadRequest(c, "missing deck short name")
		return
	}

	result, err := ic.importer.RebuildDeck(shortName)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
