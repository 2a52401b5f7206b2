// Package books provides read-only query access to the book catalog.
//
// Listings are keyset-paginated over the integer primary key: a page is
// the set of matching books with id greater than the cursor, in ascending
// id order. Page numbers and totals are derived separately and are display
// aids only; traversal is cursor-only.
package books

import (
	"context"
	"errors"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

const (
	// MaxFilterLength bounds search and genre filters before escaping.
	MaxFilterLength = 100

	// MaxLimit is the largest page size a client may request.
	MaxLimit = 100

	// MaxBookID is the highest valid book id (int32 primary key).
	MaxBookID = math.MaxInt32
)

var (
	ErrInvalidCursor = errors.New("cursor is out of range")
	ErrInvalidLimit  = errors.New("limit is out of range")
	ErrBookNotFound  = errors.New("book not found")
)

// likeEscaper makes LIKE wildcards match literally in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SanitizeFilter normalizes a user-supplied filter: truncated to
// MaxFilterLength runes, lower-cased, trimmed, with `\`, `%` and `_`
// escaped so they match literally instead of acting as LIKE wildcards.
// Truncation counts runes so a multi-byte boundary character is dropped
// whole, never cut into invalid UTF-8.
func SanitizeFilter(input string) string {
	if len(input) > MaxFilterLength {
		if runes := []rune(input); len(runes) > MaxFilterLength {
			input = string(runes[:MaxFilterLength])
		}
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return likeEscaper.Replace(input)
}

// Page is one keyset page of a filtered listing. NextCursor is zero when
// the page was short, which always means end of results.
type Page struct {
	Results    []entities.BookView
	NextCursor int32
	Page       int
	TotalPages int
	TotalCount int64
}

// Repository handles catalog read queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// filtered builds the shared predicate for listing and count queries.
// Filters must already be sanitized; empty strings are unconditionally true.
func (r *Repository) filtered(ctx context.Context, search, genre string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entities.Book{})

	if search != "" {
		pattern := "%" + search + "%"
		q = q.
			Joins("LEFT JOIN book_authors ON book_authors.book_id = books.id").
			Joins("LEFT JOIN authors ON authors.id = book_authors.author_id").
			Where(`(LOWER(books.title) LIKE ? ESCAPE '\' OR LOWER(authors.name) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	if genre != "" {
		q = q.
			Joins("JOIN book_genres ON book_genres.book_id = books.id").
			Joins("JOIN genres ON genres.id = book_genres.genre_id").
			Where(`LOWER(genres.name) LIKE ? ESCAPE '\'`, "%"+genre+"%")
	}

	return q
}

// List returns one page of books matching the sanitized search and genre
// filters, starting after cursor. A cursor of zero means "from the start".
func (r *Repository) List(ctx context.Context, cursor int32, limit int, search, genre string) (*Page, error) {
	if cursor < 0 {
		return nil, ErrInvalidCursor
	}
	if limit <= 0 || limit > MaxLimit {
		return nil, ErrInvalidLimit
	}

	search = SanitizeFilter(search)
	genre = SanitizeFilter(genre)

	var total int64
	if err := r.filtered(ctx, search, genre).Distinct("books.id").Count(&total).Error; err != nil {
		return nil, err
	}

	var ids []int32
	err := r.filtered(ctx, search, genre).
		Where("books.id > ?", cursor).
		Distinct("books.id").
		Order("books.id ASC").
		Limit(limit).
		Pluck("books.id", &ids).Error
	if err != nil {
		return nil, err
	}

	page := &Page{
		Results:    make([]entities.BookView, 0, len(ids)),
		TotalCount: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}

	// Display-only page number: how many matching ids the cursor already
	// consumed, divided into pages of the requested size.
	var before int64
	if cursor > 0 {
		err = r.filtered(ctx, search, genre).
			Where("books.id <= ?", cursor).
			Distinct("books.id").
			Count(&before).Error
		if err != nil {
			return nil, err
		}
	}
	page.Page = int(before/int64(limit)) + 1

	if len(ids) == 0 {
		return page, nil
	}

	var rows []entities.Book
	err = r.db.WithContext(ctx).
		Preload("Authors").
		Preload("Genres").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		page.Results = append(page.Results, entities.NewBookView(row))
	}

	// A full page means there may be more; a short page always means end
	// of results, no separate has-more query.
	if len(ids) == limit {
		page.NextCursor = ids[len(ids)-1]
	}

	return page, nil
}

// Get fetches a single book with its authors and genres aggregated.
func (r *Repository) Get(ctx context.Context, id int32) (*entities.BookView, error) {
	if id <= 0 {
		return nil, ErrBookNotFound
	}

	var book entities.Book
	err := r.db.WithContext(ctx).
		Preload("Authors").
		Preload("Genres").
		First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	view := entities.NewBookView(book)
	return &view, nil
}

// GetSourceTextURL returns the stored upstream text URL for a book. An
// empty string means the book exists but has no text URL stored.
func (r *Repository) GetSourceTextURL(ctx context.Context, id int32) (string, error) {
	if id <= 0 {
		return "", ErrBookNotFound
	}

	var book entities.Book
	err := r.db.WithContext(ctx).Select("id", "source_text_url").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrBookNotFound
		}
		return "", err
	}

	return book.SourceTextURL, nil
}
