package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

func (ts *testServer) postHistory(body string, cookie *http.Cookie, csrfToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/users/me/history", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if csrfToken != "" {
		req.Header.Set(auth.CSRFTokenHeader, csrfToken)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestRecordHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.seedBooks(t, 2)
	user, cookie, csrfToken := ts.login(t, "alice")

	t.Run("records a visit", func(t *testing.T) {
		w := ts.postHistory(`{"id": 1}`, cookie, csrfToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success": true}`, w.Body.String())

		var count int64
		require.NoError(t, ts.db.Model(&entities.HistoryEntry{}).
			Where("user_id = ?", user.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("revisiting refreshes instead of duplicating", func(t *testing.T) {
		var before entities.HistoryEntry
		require.NoError(t, ts.db.Where("user_id = ? AND book_id = ?", user.ID, 1).First(&before).Error)

		time.Sleep(10 * time.Millisecond)
		w := ts.postHistory(`{"id": 1}`, cookie, csrfToken)
		require.Equal(t, http.StatusOK, w.Code)

		var count int64
		require.NoError(t, ts.db.Model(&entities.HistoryEntry{}).
			Where("user_id = ?", user.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)

		var after entities.HistoryEntry
		require.NoError(t, ts.db.Where("user_id = ? AND book_id = ?", user.ID, 1).First(&after).Error)
		assert.True(t, after.CreatedAt.After(before.CreatedAt))
	})

	t.Run("invalid ids are 400", func(t *testing.T) {
		for _, body := range []string{`{"id": 0}`, `{"id": -1}`, `{"id": 2147483648}`, `{}`} {
			w := ts.postHistory(body, cookie, csrfToken)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		w := ts.postHistory(`not json`, cookie, csrfToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing CSRF token is 403", func(t *testing.T) {
		w := ts.postHistory(`{"id": 1}`, cookie, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		w := ts.postHistory(`{"id": 1}`, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.seedBooks(t, 3)
	_, cookie, csrfToken := ts.login(t, "alice")

	w := ts.postHistory(`{"id": 2}`, cookie, csrfToken)
	require.Equal(t, http.StatusOK, w.Code)
	time.Sleep(10 * time.Millisecond)
	w = ts.postHistory(`{"id": 1}`, cookie, csrfToken)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("most recently read first", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/users/me/history", cookie, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeShelf(t, w.Body.Bytes())
		require.Len(t, body.Results, 2)
		assert.Equal(t, int32(1), body.Results[0].ID)
		assert.Equal(t, int32(2), body.Results[1].ID)
		assert.NotNil(t, body.Results[0].ReadAt)
		assert.Nil(t, body.Results[0].FavoritedAt)
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		w := ts.request(http.MethodGet, "/api/users/me/history", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
