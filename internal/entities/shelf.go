package entities

import "time"

// Favorite links a user to a book they favorited. The composite primary key
// makes (user, book) unique so repeated inserts collapse into one row.
type Favorite struct {
	UserID    int32     `gorm:"primaryKey" json:"user_id"`
	BookID    int32     `gorm:"primaryKey" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string { return "user_favorites" }

// HistoryEntry records that a user opened a book. Re-reading a book
// refreshes CreatedAt, so ordering by it yields "most recently read".
type HistoryEntry struct {
	UserID    int32     `gorm:"primaryKey" json:"user_id"`
	BookID    int32     `gorm:"primaryKey" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (HistoryEntry) TableName() string { return "user_history" }

// ShelfBook is a catalog book joined with the user's shelf timestamp, used
// by the favorites and history listings.
type ShelfBook struct {
	BookView
	FavoritedAt *time.Time `json:"favorited_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
