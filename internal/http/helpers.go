package http

import (
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error payload for all API errors. Internal
// detail never crosses this boundary; store and cache failures are logged
// server-side and collapse into a generic message.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a generic 500 response.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// parseBookID validates an id string as a positive int32. The int32 bound
// matches the catalog's primary key type; anything outside it is rejected
// before any store work.
func parseBookID(idStr string) (int32, bool) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 || id > math.MaxInt32 {
		return 0, false
	}
	return int32(id), true
}

// parseBookIDParam extracts and validates the :id URL parameter, writing
// the 400 response itself on failure.
func parseBookIDParam(c *gin.Context) (int32, bool) {
	id, ok := parseBookID(c.Param("id"))
	if !ok {
		respondBadRequest(c, "Invalid book ID. It must be a positive number in range.")
		return 0, false
	}
	return id, true
}
