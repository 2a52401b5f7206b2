package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Class groups routes that share a rate-limit quota.
type Class string

const (
	// ClassAuth covers login and registration.
	ClassAuth Class = "auth"
	// ClassBrowse covers catalog browsing and shelf endpoints.
	ClassBrowse Class = "browse"
	// ClassDaily covers the upstream text proxy.
	ClassDaily Class = "daily"
)

// Quota is the number of requests allowed per sliding window.
type Quota struct {
	Requests int
	Window   time.Duration
}

// DefaultQuotas returns the per-class quotas.
func DefaultQuotas() map[Class]Quota {
	return map[Class]Quota{
		ClassAuth:   {Requests: 5, Window: time.Minute},
		ClassBrowse: {Requests: 500, Window: time.Minute},
		ClassDaily:  {Requests: 10000, Window: 24 * time.Hour},
	}
}

// RateLimiter tracks request counts per (class, client IP) with a
// sliding-window counter: the previous window's count is weighted by its
// remaining overlap with the sliding window, so bursts at a window edge
// cannot double the quota.
type RateLimiter struct {
	mu              sync.Mutex
	quotas          map[Class]Quota
	buckets         map[string]*slidingBucket
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

type slidingBucket struct {
	windowStart time.Time
	current     int
	previous    int
}

// NewRateLimiter creates a rate limiter with the given per-class quotas
// and starts its background cleanup.
func NewRateLimiter(quotas map[Class]Quota) *RateLimiter {
	rl := &RateLimiter{
		quotas:          quotas,
		buckets:         make(map[string]*slidingBucket),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	close(rl.stopCleanup)
}

// Allow records a request for the class and client IP, reporting whether
// it fits the quota. The second return is how long the caller should wait
// when denied. The boolean third return is false when the class has no
// configured quota, which callers must treat as a limiter failure.
func (rl *RateLimiter) Allow(class Class, ip string) (bool, time.Duration, bool) {
	quota, ok := rl.quotas[class]
	if !ok {
		return false, 0, false
	}

	key := string(class) + ":" + ip
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = &slidingBucket{windowStart: now}
		rl.buckets[key] = bucket
	}

	// Slide the window forward.
	elapsed := now.Sub(bucket.windowStart)
	if elapsed >= quota.Window {
		if elapsed >= 2*quota.Window {
			bucket.previous = 0
		} else {
			bucket.previous = bucket.current
		}
		bucket.current = 0
		bucket.windowStart = now.Add(-elapsed % quota.Window)
		elapsed = now.Sub(bucket.windowStart)
	}

	overlap := 1 - float64(elapsed)/float64(quota.Window)
	weighted := float64(bucket.previous)*overlap + float64(bucket.current)

	if weighted >= float64(quota.Requests) {
		return false, quota.Window - elapsed, true
	}

	bucket.current++
	return true, 0, true
}

// cleanupLoop periodically drops buckets idle for two full windows.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	maxWindow := time.Duration(0)
	for _, quota := range rl.quotas {
		if quota.Window > maxWindow {
			maxWindow = quota.Window
		}
	}

	for key, bucket := range rl.buckets {
		if now.Sub(bucket.windowStart) > 2*maxWindow {
			delete(rl.buckets, key)
		}
	}
}

// Middleware enforces the class quota per client IP. The IP comes from the
// forwarded-for chain via gin's ClientIP, falling back to the peer address
// (loopback in local runs). A limiter malfunction fails closed.
func (rl *RateLimiter) Middleware(class Class) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		allowed, retryAfter, ok := rl.Allow(class, c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !allowed {
			c.Header("Retry-After", retryAfter.Round(time.Second).String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
