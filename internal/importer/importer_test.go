package importer

import (
	"archive/zip"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mlukasik/deckard/internal/database"
	"github.com/mlukasik/deckard/internal/extract"
	"github.com/mlukasik/deckard/internal/settingsstore"
)

const basicModelsJSON = `{
	"100": {
		"name": "Basic",
		"flds": [{"name": "Front", "ord": 0}, {"name": "Back", "ord": 1}],
		"tmpls": [{"name": "Card 1", "ord": 0, "qfmt": "{{Front}}", "afmt": "{{FrontSide}}<hr id=answer>{{Back}}"}]
	}
}`

type fixtureNote struct {
	id     int64
	mid    string
	fields string
}

// buildPackage assembles a complete package file: a collection database
// with the given notes, one card row per note, an optional media index
// and its files.
func buildPackage(t *testing.T, dir, name, modelsJSON string, notes []fixtureNote, media map[string][]byte) string {
	t.Helper()

	collectionPath := filepath.Join(t.TempDir(), "collection.anki21")
	db, err := sql.Open("sqlite3", collectionPath)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE col (id INTEGER PRIMARY KEY, models TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, mid INTEGER, flds TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE cards (id INTEGER PRIMARY KEY, nid INTEGER, ord INTEGER)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO col (id, models) VALUES (1, ?)`, modelsJSON)
	require.NoError(t, err)
	for _, note := range notes {
		_, err = db.Exec(`INSERT INTO notes (id, mid, flds) VALUES (?, ?, ?)`, note.id, note.mid, note.fields)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO cards (id, nid, ord) VALUES (?, ?, 0)`, note.id, note.id)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	collectionBytes, err := os.ReadFile(collectionPath)
	require.NoError(t, err)

	pkgPath := filepath.Join(dir, name)
	f, err := os.Create(pkgPath)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("collection.anki21")
	require.NoError(t, err)
	_, err = entry.Write(collectionBytes)
	require.NoError(t, err)

	if media != nil {
		index := map[string]string{}
		ord := 0
		for realName, data := range media {
			archiveName := string(rune('0' + ord))
			index[archiveName] = realName
			entry, err := w.Create(archiveName)
			require.NoError(t, err)
			_, err = entry.Write(data)
			require.NoError(t, err)
			ord++
		}
		indexBytes := "{"
		first := true
		for archiveName, realName := range index {
			if !first {
				indexBytes += ","
			}
			indexBytes += `"` + archiveName + `":"` + realName + `"`
			first = false
		}
		indexBytes += "}"

		entry, err := w.Create("media")
		require.NoError(t, err)
		_, err = entry.Write([]byte(indexBytes))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return pkgPath
}

func newTestImporter(t *testing.T) (*Importer, *database.Database, *settingsstore.SettingsStore, string) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	settings := settingsstore.New(db)
	mediaRoot := t.TempDir()
	return New(db, settings, mediaRoot), db, settings, mediaRoot
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "geography", ShortName("/uploads/geography.apkg"))
	assert.Equal(t, "french.verbs", ShortName("french.verbs.apkg"))
	assert.Equal(t, "plain", ShortName("plain"))
}

func TestImportPackage(t *testing.T) {
	imp, db, _, mediaRoot := newTestImporter(t)

	pkg := buildPackage(t, t.TempDir(), "geography.apkg", basicModelsJSON,
		[]fixtureNote{
			{1, "100", "What is the capital of France?\x1fParis"},
			{2, "100", "What is the capital of Spain?\x1fMadrid"},
		},
		map[string][]byte{"map.png": []byte("png bytes")},
	)

	result, err := imp.ImportPackage(pkg, false)
	require.NoError(t, err)
	assert.Equal(t, "geography", result.DeckName)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, extract.StrategyTemplate, result.Strategy)
	assert.Equal(t, 2, result.NotesSeen)
	assert.Equal(t, 2, result.RowsSeen)
	assert.Equal(t, 1, result.MediaCopied)

	// Cards are due immediately after import.
	card, err := db.NextDueCard(result.DeckID, time.Now().Add(time.Second), false)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "What is the capital of France?", card.Front)
	assert.Equal(t, "What is the capital of France?\n\nParis", card.Back)

	// Source notes were archived raw for future rebuilds.
	notes, err := db.GetSourceNotes(result.DeckID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "What is the capital of France?\x1fParis", notes[0].Fields)

	// Media landed under the deck's short name.
	_, err = os.Stat(filepath.Join(mediaRoot, "geography", "map.png"))
	assert.NoError(t, err)
}

func TestImportPackageUsesStoredMapping(t *testing.T) {
	imp, _, settings, _ := newTestImporter(t)

	require.NoError(t, settings.SetFieldMapping("geography", extract.DeckMapping{
		Models: map[string]extract.ModelMapping{
			"100": {FrontIndexes: []int{2}, BackIndexes: []int{1}},
		},
	}))

	pkg := buildPackage(t, t.TempDir(), "geography.apkg", basicModelsJSON,
		[]fixtureNote{
			{1, "100", "What is the capital of France?\x1fParis"},
		},
		nil,
	)

	result, err := imp.ImportPackage(pkg, false)
	require.NoError(t, err)
	assert.Equal(t, extract.StrategyMapping, result.Strategy)
	assert.Equal(t, 1, result.Inserted)
}

func TestImportPackageOverwrite(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)
	dir := t.TempDir()

	pkg := buildPackage(t, dir, "verbs.apkg", basicModelsJSON,
		[]fixtureNote{
			{1, "100", "aller\x1fto go"},
			{2, "100", "venir\x1fto come"},
		},
		nil,
	)

	first, err := imp.ImportPackage(pkg, false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := imp.ImportPackage(pkg, true)
	require.NoError(t, err)
	assert.Equal(t, first.DeckID, second.DeckID)
	assert.Equal(t, 2, second.Inserted)

	decks, err := db.ListDecks(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, int64(2), decks[0].CardCount)
}

func TestImportPackageNoCardsLeavesStoreUntouched(t *testing.T) {
	imp, db, _, _ := newTestImporter(t)

	pkg := buildPackage(t, t.TempDir(), "empty.apkg", "", []fixtureNote{
		{1, "100", "\x1f"},
	}, nil)

	_, err := imp.ImportPackage(pkg, false)
	assert.ErrorIs(t, err, extract.ErrNoCardsProduced)

	decks, err := db.ListDecks(time.Now())
	require.NoError(t, err)
	assert.Empty(t, decks)
}

func TestInspectPackageCachesSnapshot(t *testing.T) {
	imp, _, settings, _ := newTestImporter(t)

	pkg := buildPackage(t, t.TempDir(), "geography.apkg", basicModelsJSON,
		[]fixtureNote{
			{1, "100", "Paris\x1fFrance"},
		},
		nil,
	)

	snapshot, err := imp.InspectPackage(pkg)
	require.NoError(t, err)
	require.Len(t, snapshot.Models, 1)
	info := snapshot.Models["100"]
	require.NotNil(t, info)
	assert.Equal(t, 1, info.NoteCount)
	assert.Equal(t, []string{"Paris"}, info.Fields[0].Samples)

	cached, err := settings.InspectionSnapshot("geography")
	require.NoError(t, err)
	require.NotNil(t, cached)

	// A second inspect serves the cache even if the file is gone.
	require.NoError(t, os.Remove(pkg))
	again, err := imp.InspectPackage(pkg)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ShortName, again.ShortName)
}

func TestRebuildDeck(t *testing.T) {
	imp, db, settings, _ := newTestImporter(t)

	pkg := buildPackage(t, t.TempDir(), "geography.apkg", basicModelsJSON,
		[]fixtureNote{
			{1, "100", "What is the capital of France?\x1fParis"},
		},
		nil,
	)

	first, err := imp.ImportPackage(pkg, false)
	require.NoError(t, err)

	// Choose a mapping that swaps front and back, then rebuild from the
	// archived notes without the package file.
	require.NoError(t, os.Remove(pkg))
	require.NoError(t, settings.SetFieldMapping("geography", extract.DeckMapping{
		Models: map[string]extract.ModelMapping{
			"100": {FrontIndexes: []int{2}, BackIndexes: []int{1}},
		},
	}))

	rebuilt, err := imp.RebuildDeck("geography")
	require.NoError(t, err)
	assert.Equal(t, first.DeckID, rebuilt.DeckID)
	assert.Equal(t, extract.StrategyMapping, rebuilt.Strategy)
	assert.Equal(t, 1, rebuilt.Inserted)

	card, err := db.NextDueCard(rebuilt.DeckID, time.Now().Add(time.Second), false)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "Paris", card.Front)
	assert.Equal(t, "What is the capital of France?", card.Back)
}

func TestRebuildDeckRequiresMapping(t *testing.T) {
	imp, _, _, _ := newTestImporter(t)

	_, err := imp.RebuildDeck("unmapped")
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestRebuildDeckUnknownDeck(t *testing.T) {
	imp, _, settings, _ := newTestImporter(t)

	require.NoError(t, settings.SetFieldMapping("ghost", extract.DeckMapping{
		Models: map[string]extract.ModelMapping{
			"100": {FrontIndexes: []int{1}},
		},
	}))

	_, err := imp.RebuildDeck("ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestImportPackageRejectsBadArchive(t *testing.T) {
	imp, _, _, _ := newTestImporter(t)

	path := filepath.Join(t.TempDir(), "broken.apkg")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := imp.ImportPackage(path, false)
	assert.Error(t, err)
}
