package http

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/favorites"
)

// HistoryController serves the reading-history endpoints.
type HistoryController struct {
	favorites *favorites.Repository
}

func NewHistoryController(repo *favorites.Repository) *HistoryController {
	return &HistoryController{favorites: repo}
}

// List serves GET /api/users/me/history, most recently read first.
// TODO: unpaginated; grows with the user's whole history.
func (hc *HistoryController) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	results, err := hc.favorites.ListHistory(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "next": nil})
}

type historyRequest struct {
	ID int64 `json:"id"`
}

// Record serves POST /api/users/me/history. Revisiting a book refreshes
// its recency timestamp instead of adding a second row.
func (hc *HistoryController) Record(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid JSON")
		return
	}

	if req.ID <= 0 || req.ID > math.MaxInt32 {
		respondBadRequest(c, "Invalid book ID. It must be a positive number in range.")
		return
	}
	user, _ := auth.CurrentUser(c)

	if err := hc.favorites.RecordHistory(c.Request.Context(), user.ID, int32(req.ID)); err != nil {
		respondInternalError(c, err, "record history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
