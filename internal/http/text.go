package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/gutenberg"
)

// TextController proxies plain-text book content from allow-listed
// upstream hosts.
type TextController struct {
	books   *books.Repository
	fetcher *gutenberg.Client
}

func NewTextController(repo *books.Repository, fetcher *gutenberg.Client) *TextController {
	return &TextController{books: repo, fetcher: fetcher}
}

// GetText serves GET /api/books/:id/text. The stored source URL is
// validated against the allow-list before any upstream request; a timed
// out or failing upstream is a 502, never a hung request.
func (tc *TextController) GetText(c *gin.Context) {
	id, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	textURL, err := tc.books.GetSourceTextURL(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, fmt.Sprintf("Book#%d could not be found.", id))
			return
		}
		respondInternalError(c, err, "get text url")
		return
	}

	if textURL == "" {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: fmt.Sprintf("No text URL stored for book#%d could be found.", id),
		})
		return
	}

	text, err := tc.fetcher.FetchText(c.Request.Context(), textURL)
	if err != nil {
		switch {
		case errors.Is(err, gutenberg.ErrInvalidURL):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Invalid text URL."})
		case errors.Is(err, gutenberg.ErrHostNotAllowed):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Upstream host not allowed."})
		default:
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Upstream fetch error."})
		}
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
