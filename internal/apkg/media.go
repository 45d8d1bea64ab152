package apkg

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Path separators in mapped media filenames are flattened so every file
// lands directly in the deck's media directory.
var mediaNameSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// ReadMediaIndex decodes the media index entry into a map of archive
// entry name to real filename. A missing entry or malformed JSON is not
// fatal: the import proceeds without media.
func ReadMediaIndex(a *Archive, mediaEntry string) map[string]string {
	if mediaEntry == "" {
		return map[string]string{}
	}

	data, err := a.ReadEntry(mediaEntry)
	if err != nil {
		log.Printf("WARNING: could not read media index %q: %v", mediaEntry, err)
		return map[string]string{}
	}

	index := map[string]string{}
	if err := json.Unmarshal(data, &index); err != nil {
		log.Printf("WARNING: malformed media index in %q, skipping media: %v", mediaEntry, err)
		return map[string]string{}
	}
	return index
}

// CopyMedia extracts every archive entry named in the index into
// <mediaRoot>/<deckShortName>/, sanitizing the mapped filename. Per-file
// failures are logged and skipped; they never abort the import. Returns
// the number of files copied.
func CopyMedia(a *Archive, index map[string]string, mediaRoot, deckShortName string) int {
	if len(index) == 0 {
		return 0
	}

	destDir := filepath.Join(mediaRoot, deckShortName)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		log.Printf("WARNING: could not create media directory %s: %v", destDir, err)
		return 0
	}

	copied := 0
	for _, entry := range a.Entries() {
		name, ok := index[entry.Path]
		if !ok || entry.Dir {
			continue
		}
		destPath := filepath.Join(destDir, mediaNameSanitizer.Replace(name))
		if err := a.ExtractEntry(entry.Path, destPath); err != nil {
			log.Printf("WARNING: skipping media file %q: %v", name, err)
			continue
		}
		copied++
	}
	return copied
}
