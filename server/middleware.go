package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	ownerTagKey     = "ownerTag"
	apiKeyHeader    = "X-API-Key"
	shutdownTimeout = 10 * time.Second
)

// OwnerTag derives the tenant identifier from a client API key.
// The raw key never reaches storage, only this digest does.
func OwnerTag(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func authMiddleware(apiKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		for _, key := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
				c.Set(ownerTagKey, OwnerTag(presented))
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
	}
}

// rateLimitMiddleware keeps a token bucket per owner so one tenant
// cannot starve the others.
func rateLimitMiddleware(limit float64, burst int) gin.HandlerFunc {
	if limit <= 0 {
		limit = 5.0
	}
	if burst < 1 {
		burst = 10
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		ownerTag := c.GetString(ownerTagKey)

		mu.Lock()
		limiter, ok := limiters[ownerTag]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(limit), burst)
			limiters[ownerTag] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

func corsMiddleware(allowOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowOrigins))
	allowAll := false
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
