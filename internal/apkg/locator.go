package apkg

import (
	"fmt"
	"strings"
)

const (
	// CollectionFileCurrent is the newer collection database filename;
	// it takes precedence when both are present.
	CollectionFileCurrent = "collection.anki21"
	// CollectionFileLegacy is the older collection database filename.
	CollectionFileLegacy = "collection.anki2"
	// MediaIndexName is the media index entry name.
	MediaIndexName = "media"
	// ExtractedCollectionFile is the name the collection database is
	// extracted under.
	ExtractedCollectionFile = "collection.db"
)

// Layout holds the entry paths located inside a package.
type Layout struct {
	Collection string // collection database entry
	Media      string // media index entry, empty when absent
}

// Locate scans the archive entries once and picks the collection database
// entry, preferring the current schema filename over the legacy one, plus
// the optional media index entry.
func Locate(a *Archive) (*Layout, error) {
	layout := &Layout{}
	var legacy string

	for _, entry := range a.Entries() {
		if entry.Dir {
			continue
		}
		switch {
		case strings.HasSuffix(entry.Path, CollectionFileCurrent):
			if layout.Collection == "" {
				layout.Collection = entry.Path
			}
		case strings.HasSuffix(entry.Path, CollectionFileLegacy):
			if legacy == "" {
				legacy = entry.Path
			}
		case entry.Path == MediaIndexName || strings.HasSuffix(entry.Path, "/"+MediaIndexName):
			if layout.Media == "" {
				layout.Media = entry.Path
			}
		}
	}

	if layout.Collection == "" {
		layout.Collection = legacy
	}
	if layout.Collection == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCollection, a.path)
	}
	return layout, nil
}
