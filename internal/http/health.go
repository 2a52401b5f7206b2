package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/database"
)

// HealthController reports service liveness. The database is the only hard
// dependency: a cache outage degrades reads to the database, so it is
// reported but never flips the status to unhealthy.
type HealthController struct {
	db      *database.Database
	cache   cache.Cache
	version string
}

type healthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

func NewHealthController(db *database.Database, responseCache cache.Cache, version string) *HealthController {
	return &HealthController{
		db:      db,
		cache:   responseCache,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if err := h.pingDatabase(); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "ok"
	}

	checks["cache"] = h.checkCache(c)

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) pingDatabase() error {
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// checkCache round-trips a throwaway key. Cache errors are swallowed by
// the Cache interface, so a failed read-back is the only signal available.
func (h *HealthController) checkCache(c *gin.Context) string {
	const checkKey = "health:check"

	ctx := c.Request.Context()
	h.cache.Set(ctx, checkKey, []byte("ok"), 10*time.Second)
	if _, ok := h.cache.Get(ctx, checkKey); !ok {
		return "degraded"
	}
	return "ok"
}
