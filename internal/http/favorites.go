package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/favorites"
)

// FavoritesController serves the favorite-status endpoints and the
// favorites listing.
type FavoritesController struct {
	favorites *favorites.Repository
}

func NewFavoritesController(repo *favorites.Repository) *FavoritesController {
	return &FavoritesController{favorites: repo}
}

// GetStatus serves GET /api/books/:id/favorite-status.
func (fc *FavoritesController) GetStatus(c *gin.Context) {
	id, ok := parseBookIDParam(c)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)

	favorited, err := fc.favorites.IsFavorited(c.Request.Context(), user.ID, id)
	if err != nil {
		respondInternalError(c, err, "favorite status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"isFavorited": favorited})
}

// Add serves POST /api/books/:id/favorite-status. Repeating the call
// leaves the same single favorite row.
func (fc *FavoritesController) Add(c *gin.Context) {
	fc.setFavorite(c, true)
}

// Remove serves DELETE /api/books/:id/favorite-status. Removing a pair
// that was never favorited is a no-op, not an error.
func (fc *FavoritesController) Remove(c *gin.Context) {
	fc.setFavorite(c, false)
}

func (fc *FavoritesController) setFavorite(c *gin.Context, want bool) {
	id, ok := parseBookIDParam(c)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)

	if err := fc.favorites.SetFavorite(c.Request.Context(), user.ID, id, want); err != nil {
		respondInternalError(c, err, "set favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListFavorites serves GET /api/users/me/favorites, most recently
// favorited first.
// TODO: unpaginated; grows with the user's whole shelf.
func (fc *FavoritesController) ListFavorites(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	results, err := fc.favorites.ListFavorites(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "next": nil})
}
