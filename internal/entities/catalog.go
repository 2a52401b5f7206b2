package entities

import "time"

// Author of one or more catalog books. Birth year is nullable because the
// upstream catalog omits it for many public-domain authors.
type Author struct {
	ID        int32  `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"index;size:256" json:"name"`
	BirthYear *int   `json:"birth_year"`
}

// Genre is a catalog subject label shared across books.
type Genre struct {
	ID   int32  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:256" json:"name"`
}

// Book is a catalog entry. Rows are written by the catalog importer and are
// read-only from the application's perspective.
type Book struct {
	ID            int32    `gorm:"primaryKey" json:"id"`
	Title         string   `gorm:"index;size:512" json:"title"`
	CoverURL      string   `gorm:"size:2048" json:"cover_url"`
	Description   string   `gorm:"type:text" json:"description"`
	SourceTextURL string   `gorm:"size:2048" json:"source_text_url"`
	Authors       []Author `gorm:"many2many:book_authors;" json:"authors"`
	Genres        []Genre  `gorm:"many2many:book_genres;" json:"genres"`

	CreatedAt time.Time `json:"-"`
}

// AuthorView is the author shape exposed over the API.
type AuthorView struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
}

// BookView is the normalized book shape returned to clients: authors and
// genres are always present as arrays, never null.
type BookView struct {
	ID            int32        `json:"id"`
	Title         string       `json:"title"`
	CoverURL      string       `json:"cover_url"`
	Description   string       `json:"description"`
	SourceTextURL string       `json:"source_text_url"`
	Authors       []AuthorView `json:"authors"`
	Genres        []string     `json:"genres"`
}

// NewBookView builds the API view of a book, normalizing nil association
// slices into empty arrays.
func NewBookView(b Book) BookView {
	view := BookView{
		ID:            b.ID,
		Title:         b.Title,
		CoverURL:      b.CoverURL,
		Description:   b.Description,
		SourceTextURL: b.SourceTextURL,
		Authors:       make([]AuthorView, 0, len(b.Authors)),
		Genres:        make([]string, 0, len(b.Genres)),
	}
	for _, a := range b.Authors {
		view.Authors = append(view.Authors, AuthorView{Name: a.Name, BirthYear: a.BirthYear})
	}
	for _, g := range b.Genres {
		view.Genres = append(view.Genres, g.Name)
	}
	return view
}
