package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/favorites"
	"github.com/openshelf/openshelf/internal/database/sessions"
	"github.com/openshelf/openshelf/internal/database/users"
	"github.com/openshelf/openshelf/internal/gutenberg"
	http_controllers "github.com/openshelf/openshelf/internal/http"
	"github.com/openshelf/openshelf/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	// Clean up background workers only after in-flight requests drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting OpenShelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo := books.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)
	sessionRepo := sessions.NewRepository(db.DB)
	favoriteRepo := favorites.NewRepository(db.DB)

	// Cache misses and Redis outages both degrade to the database, so a
	// failed connection downgrades to the in-process cache instead of
	// refusing to start.
	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedis(context.Background(), cfg.Cache.RedisURL)
		if err != nil {
			log.Printf("WARNING: Redis unavailable (%v), falling back to in-memory cache", err)
			responseCache = cache.NewMemory()
		} else {
			log.Printf("Redis cache connected at %s", cfg.Cache.RedisURL)
			responseCache = redisCache
		}
	} else {
		responseCache = cache.NewMemory()
	}
	defer func() {
		if err := responseCache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}()

	var captcha auth.CaptchaVerifier
	if cfg.Auth.CaptchaDisabled || cfg.Auth.CaptchaSecret == "" {
		if !cfg.Auth.CaptchaDisabled {
			log.Printf("WARNING: CAPTCHA_SECRET is not set. CAPTCHA verification is disabled.")
		}
		captcha = auth.NoopVerifier{}
	} else {
		captcha = auth.NewRecaptchaVerifier(cfg.Auth.CaptchaSecret)
	}

	authService := auth.NewService(userRepo, sessionRepo, captcha, cfg.Auth)
	authMiddleware := auth.NewMiddleware(sessionRepo)
	authController := auth.NewController(authService, cfg.Auth)

	var limiter *auth.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = auth.NewRateLimiter(auth.DefaultQuotas())
		defer limiter.Stop()
	} else {
		log.Printf("WARNING: Rate limiting is disabled")
	}

	textFetcher := gutenberg.NewClient(cfg.Upstream.AllowedHosts, cfg.Upstream.FetchTimeout)

	var sweeper *scheduler.SessionSweeper
	if cfg.Sessions.SweepEnabled {
		sweeper = scheduler.NewSessionSweeper(sessionRepo, cfg.Sessions.SweepSchedule)
		if err := sweeper.Start(); err != nil {
			log.Fatalf("Failed to start session sweeper: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Books:          bookRepo,
		Favorites:      favoriteRepo,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		RateLimiter:    limiter,
		TextFetcher:    textFetcher,
		ResponseCache:  responseCache,
		CacheListTTL:   cfg.Cache.ListTTL,
		CacheBookTTL:   cfg.Cache.BookTTL,
		Version:        version,
		AuthConfig:     cfg.Auth,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sweeper != nil {
			sweeper.Stop()
		}
	}

	Serve(router, cfg, onShutdown)
}
