package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/favorites"
	"github.com/openshelf/openshelf/internal/gutenberg"
)

// RouterConfig carries all router dependencies, constructed once at
// startup and injected rather than imported ad hoc.
type RouterConfig struct {
	Database       *database.Database
	Books          *books.Repository
	Favorites      *favorites.Repository
	AuthController *auth.Controller
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter
	TextFetcher    *gutenberg.Client
	ResponseCache  cache.Cache
	CacheListTTL   time.Duration
	CacheBookTTL   time.Duration
	Version        string
	AuthConfig     config.Auth
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(SecurityHeadersMiddleware())

	// Session context is resolved for every request; endpoints that need
	// an authenticated user add their own guards.
	router.Use(cfg.AuthMiddleware.LoadSession())

	health := NewHealthController(cfg.Database, cfg.ResponseCache, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	booksController := NewBooksController(cfg.Books, cfg.ResponseCache, cfg.CacheListTTL, cfg.CacheBookTTL)
	favoritesController := NewFavoritesController(cfg.Favorites)
	historyController := NewHistoryController(cfg.Favorites)
	textController := NewTextController(cfg.Books, cfg.TextFetcher)

	api := router.Group("/api")

	cfg.AuthController.RegisterRoutes(api, cfg.RateLimiter)

	browse := cfg.RateLimiter.Middleware(auth.ClassBrowse)
	daily := cfg.RateLimiter.Middleware(auth.ClassDaily)

	booksGroup := api.Group("/books")
	booksGroup.GET("", browse, booksController.ListBooks)
	booksGroup.GET("/:id", browse, booksController.GetBook)
	booksGroup.GET("/:id/text", daily, textController.GetText)
	booksGroup.GET("/:id/favorite-status", browse, auth.RequireSession(), favoritesController.GetStatus)
	booksGroup.POST("/:id/favorite-status", browse, auth.RequireSession(), auth.RequireCSRF(), favoritesController.Add)
	booksGroup.DELETE("/:id/favorite-status", browse, auth.RequireSession(), auth.RequireCSRF(), favoritesController.Remove)

	me := api.Group("/users/me")
	me.GET("/favorites", browse, auth.RequireSession(), favoritesController.ListFavorites)
	me.GET("/history", browse, auth.RequireSession(), historyController.List)
	me.POST("/history", browse, auth.RequireSession(), auth.RequireCSRF(), historyController.Record)

	return router
}
