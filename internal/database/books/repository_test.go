package books

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

func createTestBook(t *testing.T, db *gorm.DB, id int32, title string, authors []string, genres []string) {
	book := entities.Book{
		ID:            id,
		Title:         title,
		SourceTextURL: fmt.Sprintf("https://www.gutenberg.org/files/%d/%d-0.txt", id, id),
	}
	for _, name := range authors {
		var author entities.Author
		require.NoError(t, db.Where("name = ?", name).Attrs(entities.Author{Name: name}).FirstOrCreate(&author).Error)
		book.Authors = append(book.Authors, author)
	}
	for _, name := range genres {
		var genre entities.Genre
		require.NoError(t, db.Where("name = ?", name).Attrs(entities.Genre{Name: name}).FirstOrCreate(&genre).Error)
		book.Genres = append(book.Genres, genre)
	}
	require.NoError(t, db.Create(&book).Error)
}

func TestSanitizeFilter(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		assert.Equal(t, "moby dick", SanitizeFilter("  Moby Dick  "))
	})

	t.Run("escapes LIKE wildcards", func(t *testing.T) {
		assert.Equal(t, `50\% off\_deal`, SanitizeFilter("50% off_deal"))
	})

	t.Run("escapes backslash before wildcards", func(t *testing.T) {
		assert.Equal(t, `\\\%`, SanitizeFilter(`\%`))
	})

	t.Run("truncates before escaping", func(t *testing.T) {
		long := strings.Repeat("a", MaxFilterLength+50)
		assert.Len(t, SanitizeFilter(long), MaxFilterLength)
	})

	t.Run("truncation keeps multi-byte boundary runes whole", func(t *testing.T) {
		long := strings.Repeat("é", MaxFilterLength+1)

		got := SanitizeFilter(long)
		assert.True(t, utf8.ValidString(got))
		assert.NotContains(t, got, string(utf8.RuneError))
		assert.Equal(t, MaxFilterLength, utf8.RuneCountInString(got))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		assert.Equal(t, "", SanitizeFilter("   "))
	})
}

func TestListPagination(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	for i := int32(1); i <= 25; i++ {
		createTestBook(t, db, i, fmt.Sprintf("Book %d", i), []string{"Author A"}, []string{"Fiction"})
	}

	ctx := context.Background()

	t.Run("first page is full and has a cursor", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "", "")
		require.NoError(t, err)

		assert.Len(t, page.Results, 10)
		assert.Equal(t, int32(10), page.NextCursor)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, int64(25), page.TotalCount)
	})

	t.Run("cursor traversal is exhaustive and non-overlapping", func(t *testing.T) {
		seen := make(map[int32]bool)
		cursor := int32(0)
		pages := 0

		for {
			page, err := repo.List(ctx, cursor, 10, "", "")
			require.NoError(t, err)
			pages++

			for _, book := range page.Results {
				assert.False(t, seen[book.ID], "book %d returned twice", book.ID)
				seen[book.ID] = true
			}

			if page.NextCursor == 0 {
				break
			}
			cursor = page.NextCursor
		}

		assert.Equal(t, 3, pages)
		assert.Len(t, seen, 25)
	})

	t.Run("short page has no cursor", func(t *testing.T) {
		page, err := repo.List(ctx, 20, 10, "", "")
		require.NoError(t, err)

		assert.Len(t, page.Results, 5)
		assert.Equal(t, int32(0), page.NextCursor)
		assert.Equal(t, 3, page.Page)
	})

	t.Run("exact boundary yields a trailing empty page", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 25, "", "")
		require.NoError(t, err)
		require.Len(t, page.Results, 25)
		require.Equal(t, int32(25), page.NextCursor)

		last, err := repo.List(ctx, page.NextCursor, 25, "", "")
		require.NoError(t, err)
		assert.Empty(t, last.Results)
		assert.Equal(t, int32(0), last.NextCursor)
	})

	t.Run("cursor past the end returns an empty page", func(t *testing.T) {
		page, err := repo.List(ctx, 1000, 10, "", "")
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.Equal(t, int32(0), page.NextCursor)
	})

	t.Run("results are in ascending id order", func(t *testing.T) {
		page, err := repo.List(ctx, 5, 10, "", "")
		require.NoError(t, err)

		prev := int32(5)
		for _, book := range page.Results {
			assert.Greater(t, book.ID, prev)
			prev = book.ID
		}
	})

	t.Run("rejects negative cursor", func(t *testing.T) {
		_, err := repo.List(ctx, -1, 10, "", "")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects out-of-range limit", func(t *testing.T) {
		_, err := repo.List(ctx, 0, 0, "", "")
		assert.ErrorIs(t, err, ErrInvalidLimit)

		_, err = repo.List(ctx, 0, MaxLimit+1, "", "")
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestListFiltering(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, db, 1, "Moby Dick", []string{"Herman Melville"}, []string{"Adventure"})
	createTestBook(t, db, 2, "White Fang", []string{"Jack London"}, []string{"Adventure"})
	createTestBook(t, db, 3, "The Call of the Wild", []string{"Jack London"}, []string{"Fiction"})
	createTestBook(t, db, 4, "100% Proof", []string{"Anonymous"}, []string{"Fiction"})

	ctx := context.Background()

	t.Run("matches title case-insensitively", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "MOBY", "")
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "Moby Dick", page.Results[0].Title)
	})

	t.Run("matches author name", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "london", "")
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
		assert.Equal(t, int64(2), page.TotalCount)
	})

	t.Run("genre filter narrows results", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "", "adventure")
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
	})

	t.Run("search and genre combine", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "london", "fiction")
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "The Call of the Wild", page.Results[0].Title)
	})

	t.Run("percent sign matches literally", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "100%", "")
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "100% Proof", page.Results[0].Title)
	})

	t.Run("bare wildcard does not match everything", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "%", "")
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "100% Proof", page.Results[0].Title)
	})

	t.Run("no matches is an empty page not an error", func(t *testing.T) {
		page, err := repo.List(ctx, 0, 10, "zzzzzz", "")
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.Equal(t, int64(0), page.TotalCount)
		assert.Equal(t, 0, page.TotalPages)
	})

	t.Run("multi-author book is not duplicated by the join", func(t *testing.T) {
		createTestBook(t, db, 5, "Collected Tales", []string{"Jack London", "Herman Melville"}, nil)

		page, err := repo.List(ctx, 0, 10, "l", "")
		require.NoError(t, err)

		seen := make(map[int32]int)
		for _, book := range page.Results {
			seen[book.ID]++
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "book %d duplicated", id)
		}
	})
}

func TestGet(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, db, 7, "Dracula", []string{"Bram Stoker"}, []string{"Horror", "Gothic"})

	ctx := context.Background()

	t.Run("returns the book with authors and genres", func(t *testing.T) {
		view, err := repo.Get(ctx, 7)
		require.NoError(t, err)

		assert.Equal(t, "Dracula", view.Title)
		require.Len(t, view.Authors, 1)
		assert.Equal(t, "Bram Stoker", view.Authors[0].Name)
		assert.Len(t, view.Genres, 2)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 999)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("non-positive id is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 0)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestGetSourceTextURL(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, db, 1, "Dracula", nil, nil)
	require.NoError(t, db.Create(&entities.Book{ID: 2, Title: "No Text"}).Error)

	ctx := context.Background()

	t.Run("returns the stored URL", func(t *testing.T) {
		url, err := repo.GetSourceTextURL(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "https://www.gutenberg.org/files/1/1-0.txt", url)
	})

	t.Run("missing URL is empty not an error", func(t *testing.T) {
		url, err := repo.GetSourceTextURL(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	t.Run("unknown book is not found", func(t *testing.T) {
		_, err := repo.GetSourceTextURL(ctx, 999)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}
