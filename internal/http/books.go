package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

const defaultPageLimit = 20

const jsonContentType = "application/json; charset=utf-8"

// BooksController serves the catalog listing and single-book endpoints,
// consulting the response cache before touching the database.
type BooksController struct {
	books   *books.Repository
	cache   cache.Cache
	listTTL time.Duration
	bookTTL time.Duration
}

func NewBooksController(repo *books.Repository, responseCache cache.Cache, listTTL, bookTTL time.Duration) *BooksController {
	return &BooksController{
		books:   repo,
		cache:   responseCache,
		listTTL: listTTL,
		bookTTL: bookTTL,
	}
}

// listResponse is the listing payload; "books" carries the total match
// count and "next" the URL of the following page, null on the last page.
type listResponse struct {
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	Books      int64               `json:"books"`
	Next       *string             `json:"next"`
	Results    []entities.BookView `json:"results"`
}

// ListBooks serves GET /api/books. Traversal is cursor-only: lastId names
// the last book of the previous page and zero means "from the start".
func (bc *BooksController) ListBooks(c *gin.Context) {
	search := c.Query("search")
	genre := c.Query("genre")

	cursor, err := parseCursor(c.DefaultQuery("lastId", "0"))
	if err != nil {
		respondBadRequest(c, "Invalid lastId. Number is out of range.")
		return
	}

	limit, err := parseLimit(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil {
		respondBadRequest(c, "Invalid limit. Number is out of range.")
		return
	}

	// The cache key is the full normalized parameter tuple, so two spellings
	// of the same filter share an entry.
	key := cache.ListKey(books.SanitizeFilter(search), books.SanitizeFilter(genre), cursor, limit)
	if payload, ok := bc.cache.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, jsonContentType, payload)
		return
	}

	page, err := bc.books.List(c.Request.Context(), cursor, limit, search, genre)
	if err != nil {
		if errors.Is(err, books.ErrInvalidCursor) || errors.Is(err, books.ErrInvalidLimit) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "list books")
		return
	}

	response := listResponse{
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Books:      page.TotalCount,
		Results:    page.Results,
	}
	if page.NextCursor > 0 {
		next := nextPageURL(page.NextCursor, limit, search, genre)
		response.Next = &next
	}

	payload, err := json.Marshal(response)
	if err != nil {
		respondInternalError(c, err, "marshal book listing")
		return
	}

	bc.cache.Set(c.Request.Context(), key, payload, bc.listTTL)
	c.Data(http.StatusOK, jsonContentType, payload)
}

// GetBook serves GET /api/books/:id. Book content is near-immutable once
// ingested, so these responses get the longer cache TTL.
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	key := cache.BookKey(id)
	if payload, ok := bc.cache.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, jsonContentType, payload)
		return
	}

	book, err := bc.books.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, fmt.Sprintf("Book#%d could not be found.", id))
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	payload, err := json.Marshal(book)
	if err != nil {
		respondInternalError(c, err, "marshal book")
		return
	}

	bc.cache.Set(c.Request.Context(), key, payload, bc.bookTTL)
	c.Data(http.StatusOK, jsonContentType, payload)
}

func parseCursor(raw string) (int32, error) {
	cursor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cursor < 0 || cursor > math.MaxInt32 {
		return 0, books.ErrInvalidCursor
	}
	return int32(cursor), nil
}

func parseLimit(raw string) (int, error) {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > books.MaxLimit {
		return 0, books.ErrInvalidLimit
	}
	return limit, nil
}

// nextPageURL rebuilds the listing URL with the new cursor and the
// caller's original filters and limit.
func nextPageURL(cursor int32, limit int, search, genre string) string {
	values := url.Values{}
	values.Set("lastId", strconv.FormatInt(int64(cursor), 10))
	values.Set("limit", strconv.Itoa(limit))
	if search != "" {
		values.Set("search", search)
	}
	if genre != "" {
		values.Set("genre", genre)
	}
	return "/api/books?" + values.Encode()
}
