package config

const (
	// DefaultDatabasePath is the default location of the local store.
	DefaultDatabasePath = "./deckard.db"
	// DefaultMediaRoot is the default directory for extracted media.
	DefaultMediaRoot = "./media"
)
