package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

type shelfBody struct {
	Results []entities.ShelfBook `json:"results"`
	Next    *string              `json:"next"`
}

func decodeShelf(t *testing.T, body []byte) shelfBody {
	var parsed shelfBody
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed
}

func TestFavoriteStatusEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.seedBooks(t, 3)
	_, cookie, csrfToken := ts.login(t, "alice")

	withCSRF := map[string]string{auth.CSRFTokenHeader: csrfToken}

	t.Run("fresh book is not favorited", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/books/1/favorite-status", cookie, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"isFavorited": false}`, w.Body.String())
	})

	t.Run("favoriting flips the status", func(t *testing.T) {
		w := ts.request(http.MethodPost, "/api/books/1/favorite-status", cookie, withCSRF)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success": true}`, w.Body.String())

		status := ts.request(http.MethodGet, "/api/books/1/favorite-status", cookie, nil)
		assert.JSONEq(t, `{"isFavorited": true}`, status.Body.String())
	})

	t.Run("double favorite converges on one row", func(t *testing.T) {
		first := ts.request(http.MethodPost, "/api/books/2/favorite-status", cookie, withCSRF)
		second := ts.request(http.MethodPost, "/api/books/2/favorite-status", cookie, withCSRF)
		require.Equal(t, http.StatusOK, first.Code)
		require.Equal(t, http.StatusOK, second.Code)

		var count int64
		require.NoError(t, ts.db.Model(&entities.Favorite{}).
			Where("book_id = ?", 2).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unfavoriting is idempotent too", func(t *testing.T) {
		w := ts.request(http.MethodDelete, "/api/books/1/favorite-status", cookie, withCSRF)
		require.Equal(t, http.StatusOK, w.Code)
		w = ts.request(http.MethodDelete, "/api/books/1/favorite-status", cookie, withCSRF)
		require.Equal(t, http.StatusOK, w.Code)

		status := ts.request(http.MethodGet, "/api/books/1/favorite-status", cookie, nil)
		assert.JSONEq(t, `{"isFavorited": false}`, status.Body.String())
	})

	t.Run("anonymous requests are 401", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/books/1/favorite-status", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = ts.request(http.MethodPost, "/api/books/1/favorite-status", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("mutations without the CSRF token are 403", func(t *testing.T) {
		w := ts.request(http.MethodPost, "/api/books/1/favorite-status", cookie, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = ts.request(http.MethodDelete, "/api/books/1/favorite-status", cookie, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("reads do not need the CSRF token", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/books/1/favorite-status", cookie, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestListFavoritesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.seedBooks(t, 3)
	_, cookie, csrfToken := ts.login(t, "alice")
	withCSRF := map[string]string{auth.CSRFTokenHeader: csrfToken}

	for _, id := range []string{"1", "3"} {
		w := ts.request(http.MethodPost, "/api/books/"+id+"/favorite-status", cookie, withCSRF)
		require.Equal(t, http.StatusOK, w.Code)
	}

	t.Run("lists the user's favorites", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/users/me/favorites", cookie, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeShelf(t, w.Body.Bytes())
		require.Len(t, body.Results, 2)
		assert.Nil(t, body.Next)
		for _, entry := range body.Results {
			assert.NotNil(t, entry.FavoritedAt)
		}
	})

	t.Run("favorites are private to the user", func(t *testing.T) {
		_, otherCookie, _ := ts.login(t, "bob")

		w := ts.request(http.MethodGet, "/api/users/me/favorites", otherCookie, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeShelf(t, w.Body.Bytes())
		assert.Empty(t, body.Results)
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/users/me/favorites", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
