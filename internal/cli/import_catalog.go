// Package cli implements the command-line subcommands.
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

// catalogBook is one entry of a catalog dump file.
type catalogBook struct {
	ID            int32  `json:"id"`
	Title         string `json:"title"`
	CoverURL      string `json:"cover_url"`
	Description   string `json:"description"`
	SourceTextURL string `json:"source_text_url"`
	Authors       []struct {
		Name      string `json:"name"`
		BirthYear *int   `json:"birth_year"`
	} `json:"authors"`
	Genres []string `json:"genres"`
}

// ImportCatalogCommand loads a JSON catalog dump into the database. The
// application treats the catalog as read-only; this command is the
// ingestion side of that contract.
type ImportCatalogCommand struct {
	DumpPath    string
	DatabaseURL string
}

func NewImportCatalogCommand() *ImportCatalogCommand {
	return &ImportCatalogCommand{}
}

func (cmd *ImportCatalogCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-catalog", flag.ExitOnError)

	fs.StringVar(&cmd.DumpPath, "dump", "", "Path to the JSON catalog dump (required)")
	fs.StringVar(&cmd.DatabaseURL, "db", config.DefaultDatabaseURL, "Database connection URL")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-catalog [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load a JSON catalog dump of books, authors and genres into the database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-catalog -dump ./catalog.json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.DumpPath == "" {
		fs.Usage()
		return fmt.Errorf("dump path is required")
	}

	return nil
}

func (cmd *ImportCatalogCommand) Run() error {
	file, err := os.Open(cmd.DumpPath)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer file.Close()

	var dump []catalogBook
	if err := json.NewDecoder(file).Decode(&dump); err != nil {
		return fmt.Errorf("decode dump: %w", err)
	}

	db, err := database.NewDatabase(cmd.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	imported := 0
	for _, entry := range dump {
		if entry.ID <= 0 || entry.Title == "" {
			fmt.Fprintf(os.Stderr, "Skipping invalid entry (id=%d)\n", entry.ID)
			continue
		}

		book := entities.Book{
			ID:            entry.ID,
			Title:         entry.Title,
			CoverURL:      entry.CoverURL,
			Description:   entry.Description,
			SourceTextURL: entry.SourceTextURL,
		}

		for _, author := range entry.Authors {
			var row entities.Author
			err := db.DB.Where("name = ?", author.Name).
				Attrs(entities.Author{Name: author.Name, BirthYear: author.BirthYear}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("upsert author %q: %w", author.Name, err)
			}
			book.Authors = append(book.Authors, row)
		}

		for _, genre := range entry.Genres {
			var row entities.Genre
			err := db.DB.Where("name = ?", genre).
				Attrs(entities.Genre{Name: genre}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("upsert genre %q: %w", genre, err)
			}
			book.Genres = append(book.Genres, row)
		}

		// Re-importing a dump refreshes existing rows in place.
		err = db.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "cover_url", "description", "source_text_url"}),
		}).Create(&book).Error
		if err != nil {
			return fmt.Errorf("upsert book %d: %w", entry.ID, err)
		}
		imported++
	}

	fmt.Printf("Imported %d of %d catalog entries\n", imported, len(dump))
	return nil
}
