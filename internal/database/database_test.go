package database

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mlukasik/deckard/internal/entities"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCards(due time.Time) []entities.Card {
	return []entities.Card{
		{Front: "bonjour", Back: "hello", Ease: entities.DefaultEase, Due: due},
		{Front: "merci", Back: "thanks", Ease: entities.DefaultEase, Due: due},
	}
}

func TestNewDatabaseStoresSchemaVersion(t *testing.T) {
	db := newTestDatabase(t)

	setting, err := db.GetSetting(entities.SettingKeySchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(SchemaVersion), setting.Value)
}

func TestMigrateRecreatesOnVersionMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	_, _, err = db.ImportCards("french", sampleCards(time.Now()), false)
	require.NoError(t, err)

	// Simulate a store written by a different schema version.
	require.NoError(t, db.SetSetting(entities.SettingKeySchemaVersion, "999"))
	require.NoError(t, db.Close())

	reopened, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	decks, err := reopened.ListDecks(time.Now())
	require.NoError(t, err)
	assert.Empty(t, decks)

	setting, err := reopened.GetSetting(entities.SettingKeySchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(SchemaVersion), setting.Value)
}

func TestImportCards(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	deckID, inserted, err := db.ImportCards("french", sampleCards(now), false)
	require.NoError(t, err)
	assert.NotZero(t, deckID)
	assert.Equal(t, 2, inserted)

	deck, err := db.GetDeckByName("french")
	require.NoError(t, err)
	assert.Equal(t, deckID, deck.ID)
}

func TestImportCardsSkipsEmptyCards(t *testing.T) {
	db := newTestDatabase(t)

	cards := []entities.Card{
		{Front: "kept", Ease: entities.DefaultEase},
		{Front: "", Back: "", Ease: entities.DefaultEase},
	}

	_, inserted, err := db.ImportCards("sparse", cards, false)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestImportCardsAppendAndOverwrite(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	deckID, _, err := db.ImportCards("french", sampleCards(now), false)
	require.NoError(t, err)

	// Re-import without overwrite appends into the same deck.
	sameID, inserted, err := db.ImportCards("french", sampleCards(now), false)
	require.NoError(t, err)
	assert.Equal(t, deckID, sameID)
	assert.Equal(t, 2, inserted)

	decks, err := db.ListDecks(now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, int64(4), decks[0].CardCount)

	// Overwrite replaces the deck's cards.
	_, inserted, err = db.ImportCards("french", sampleCards(now)[:1], true)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	decks, err = db.ListDecks(now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, int64(1), decks[0].CardCount)
}

func TestListDecksOrdersCaseInsensitively(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	for _, name := range []string{"zoology", "Anatomy", "botany"} {
		_, _, err := db.ImportCards(name, sampleCards(now), false)
		require.NoError(t, err)
	}

	decks, err := db.ListDecks(now)
	require.NoError(t, err)
	require.Len(t, decks, 3)
	assert.Equal(t, "Anatomy", decks[0].Name)
	assert.Equal(t, "botany", decks[1].Name)
	assert.Equal(t, "zoology", decks[2].Name)
}

func TestListDecksCountsDueCards(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	cards := []entities.Card{
		{Front: "due now", Ease: entities.DefaultEase, Due: now.Add(-time.Hour)},
		{Front: "due exactly now", Ease: entities.DefaultEase, Due: now},
		{Front: "due later", Ease: entities.DefaultEase, Due: now.Add(time.Hour)},
	}

	_, _, err := db.ImportCards("timing", cards, false)
	require.NoError(t, err)

	decks, err := db.ListDecks(now)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, int64(3), decks[0].CardCount)
	assert.Equal(t, int64(2), decks[0].DueCount)
}

func TestDeleteDeckCascades(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	deckID, _, err := db.ImportCards("doomed", sampleCards(now), false)
	require.NoError(t, err)
	require.NoError(t, db.ReplaceSourceNotes(deckID, []entities.SourceNote{
		{ModelID: "100", Fields: "a\x1fb"},
	}))

	require.NoError(t, db.DeleteDeck(deckID))

	_, err = db.GetDeckByID(deckID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	notes, err := db.GetSourceNotes(deckID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	var count int64
	require.NoError(t, db.DB.Model(&entities.Card{}).Where("deck_id = ?", deckID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNextDueCard(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	cards := []entities.Card{
		{Front: "second", Ease: entities.DefaultEase, Due: now.Add(-time.Minute)},
		{Front: "first", Ease: entities.DefaultEase, Due: now.Add(-time.Hour)},
		{Front: "not yet", Ease: entities.DefaultEase, Due: now.Add(time.Hour)},
	}
	deckID, _, err := db.ImportCards("queue", cards, false)
	require.NoError(t, err)

	card, err := db.NextDueCard(deckID, now, false)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "first", card.Front)
}

func TestNextDueCardNoneDue(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	cards := []entities.Card{
		{Front: "future", Ease: entities.DefaultEase, Due: now.Add(time.Hour)},
	}
	deckID, _, err := db.ImportCards("quiet", cards, false)
	require.NoError(t, err)

	card, err := db.NextDueCard(deckID, now, false)
	require.NoError(t, err)
	assert.Nil(t, card)
}

func TestNextDueCardTieBreaksByID(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()
	due := now.Add(-time.Minute)

	cards := []entities.Card{
		{Front: "inserted first", Ease: entities.DefaultEase, Due: due},
		{Front: "inserted second", Ease: entities.DefaultEase, Due: due},
	}
	deckID, _, err := db.ImportCards("ties", cards, false)
	require.NoError(t, err)

	card, err := db.NextDueCard(deckID, now, false)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "inserted first", card.Front)
}

func TestSaveCardUpdatesSchedulingState(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	deckID, _, err := db.ImportCards("study", sampleCards(now.Add(-time.Minute)), false)
	require.NoError(t, err)

	card, err := db.NextDueCard(deckID, now, false)
	require.NoError(t, err)
	require.NotNil(t, card)

	card.Reps = 3
	card.Interval = 10
	card.Due = now.Add(10 * 24 * time.Hour)
	require.NoError(t, db.SaveCard(card))

	reloaded, err := db.GetCardByID(card.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Reps)
	assert.Equal(t, 10.0, reloaded.Interval)
}

func TestReplaceSourceNotesPreservesOrder(t *testing.T) {
	db := newTestDatabase(t)

	deckID, _, err := db.ImportCards("archive", sampleCards(time.Now()), false)
	require.NoError(t, err)

	first := []entities.SourceNote{
		{ModelID: "100", Fields: "one"},
		{ModelID: "100", Fields: "two"},
	}
	require.NoError(t, db.ReplaceSourceNotes(deckID, first))

	second := []entities.SourceNote{
		{ModelID: "200", Fields: "three"},
		{ModelID: "200", Fields: "four"},
		{ModelID: "200", Fields: "five"},
	}
	require.NoError(t, db.ReplaceSourceNotes(deckID, second))

	notes, err := db.GetSourceNotes(deckID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "three", notes[0].Fields)
	assert.Equal(t, "five", notes[2].Fields)
}

func TestSettings(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.GetSetting("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, db.SetSetting("greeting", "bonjour"))
	setting, err := db.GetSetting("greeting")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", setting.Value)

	require.NoError(t, db.SetSetting("greeting", "salut"))
	setting, err = db.GetSetting("greeting")
	require.NoError(t, err)
	assert.Equal(t, "salut", setting.Value)

	require.NoError(t, db.DeleteSetting("greeting"))
	_, err = db.GetSetting("greeting")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
