package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mlukasik/deckard/internal/config"
	"github.com/mlukasik/deckard/internal/database"
	"github.com/mlukasik/deckard/internal/importer"
	"github.com/mlukasik/deckard/internal/settingsstore"
)

// ImportCommand imports a flashcard package from the command line.
type ImportCommand struct {
	PackagePath  string
	DatabasePath string
	MediaRoot    string
	Overwrite    bool
}

// NewImportCommand creates a new ImportCommand
func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local store database")
	fs.StringVar(&cmd.MediaRoot, "media-root", config.DefaultMediaRoot, "Directory media files are extracted under")
	fs.BoolVar(&cmd.Overwrite, "overwrite", true, "Replace the deck's cards if it already exists")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options] <package-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import an exported flashcard package into the local store.\n\n")
		fmt.Fprintf(os.Stderr, "The deck is named after the package filename without its extension;\n")
		fmt.Fprintf(os.Stderr, "a field mapping previously stored for that name is applied automatically.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one package file argument")
	}
	cmd.PackagePath = fs.Arg(0)
	return nil
}

// Run executes the import command
func (cmd *ImportCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	settings := settingsstore.New(db)
	imp := importer.New(db, settings, cmd.MediaRoot)

	result, err := imp.ImportPackage(cmd.PackagePath, cmd.Overwrite)
	if err != nil {
		return err
	}

	fmt.Printf("Imported deck %q: %d cards (%s strategy, %d notes seen", result.DeckName, result.Inserted, result.Strategy, result.NotesSeen)
	if result.MediaCopied > 0 {
		fmt.Printf(", %d media files", result.MediaCopied)
	}
	fmt.Println(")")
	return nil
}
