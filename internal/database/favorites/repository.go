// Package favorites provides database operations for a user's shelf: the
// favorites join table and the reading-history join table.
//
// Mutations lean on the store's native conflict resolution (atomic upsert)
// rather than read-modify-write, so concurrent identical requests from the
// same user (a double-click) converge on the same end state.
package favorites

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles favorites and history persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SetFavorite makes the (user, book) pair favorited or not. Both directions
// are idempotent: a conflicting insert is a no-op, as is deleting a pair
// that was never favorited.
func (r *Repository) SetFavorite(ctx context.Context, userID, bookID int32, want bool) error {
	if want {
		fav := entities.Favorite{UserID: userID, BookID: bookID, CreatedAt: time.Now()}
		return r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
				DoNothing: true,
			}).
			Create(&fav).Error
	}
	return r.db.WithContext(ctx).
		Delete(&entities.Favorite{}, "user_id = ? AND book_id = ?", userID, bookID).Error
}

// IsFavorited reports whether the user has favorited the book.
func (r *Repository) IsFavorited(ctx context.Context, userID, bookID int32) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favorite{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// RecordHistory upserts a history row, refreshing created_at on repeat
// visits so ordering by it yields "most recently read".
func (r *Repository) RecordHistory(ctx context.Context, userID, bookID int32) error {
	entry := entities.HistoryEntry{UserID: userID, BookID: bookID, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]any{"created_at": time.Now()}),
		}).
		Create(&entry).Error
}

// ListFavorites returns the user's favorited books joined against the
// catalog, most recently favorited first.
func (r *Repository) ListFavorites(ctx context.Context, userID int32) ([]entities.ShelfBook, error) {
	var rows []entities.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]shelfPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, shelfPair{bookID: row.BookID, at: row.CreatedAt})
	}
	return r.joinBooks(ctx, pairs, true)
}

// ListHistory returns the user's reading history joined against the
// catalog, most recently read first.
func (r *Repository) ListHistory(ctx context.Context, userID int32) ([]entities.ShelfBook, error) {
	var rows []entities.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]shelfPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, shelfPair{bookID: row.BookID, at: row.CreatedAt})
	}
	return r.joinBooks(ctx, pairs, false)
}

type shelfPair struct {
	bookID int32
	at     time.Time
}

// joinBooks loads the catalog books for the given shelf rows, preserving
// the rows' recency order. A shelf row whose book vanished from the
// catalog is skipped rather than erroring the whole listing.
func (r *Repository) joinBooks(ctx context.Context, pairs []shelfPair, favorited bool) ([]entities.ShelfBook, error) {
	results := make([]entities.ShelfBook, 0, len(pairs))
	if len(pairs) == 0 {
		return results, nil
	}

	ids := make([]int32, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.bookID)
	}

	var books []entities.Book
	err := r.db.WithContext(ctx).
		Preload("Authors").
		Preload("Genres").
		Where("id IN ?", ids).
		Find(&books).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int32]entities.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	for _, p := range pairs {
		book, ok := byID[p.bookID]
		if !ok {
			continue
		}
		at := p.at
		entry := entities.ShelfBook{BookView: entities.NewBookView(book)}
		if favorited {
			entry.FavoritedAt = &at
		} else {
			entry.ReadAt = &at
		}
		results = append(results, entry)
	}

	return results, nil
}
