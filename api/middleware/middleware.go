/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package middleware

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"

	"github.com/acmeproducts/skuflow/config"
)

// KeyHeader carries the server secret on every request when the server runs in secure mode.
const KeyHeader = "X-Skuflow-Key"

// RouteLimits holds one tollbooth limiter per class of route, keyed by client
// address. A class without a configured limiter passes every request through.
type RouteLimits struct {
	api    *limiter.Limiter
	upload *limiter.Limiter
}

// NewRouteLimits builds the limiters described by conf. Uploads get their own
// budget when upload limits are set and share the general one otherwise.
func NewRouteLimits(conf config.RateLimitConfig) *RouteLimits {
	ttl := time.Hour
	if conf.CleanupIntervalSec != nil {
		ttl = time.Duration(*conf.CleanupIntervalSec) * time.Second
	}

	limits := &RouteLimits{}
	if conf.RequestsPerSecond != nil && conf.Burst != nil {
		limits.api = newLimiter(*conf.RequestsPerSecond, *conf.Burst, ttl)
	}
	if conf.UploadRequestsPerSecond != nil && conf.UploadBurst != nil {
		limits.upload = newLimiter(*conf.UploadRequestsPerSecond, *conf.UploadBurst, ttl)
	} else {
		limits.upload = limits.api
	}
	return limits
}

func newLimiter(rps float64, burst int, ttl time.Duration) *limiter.Limiter {
	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{DefaultExpirationTTL: ttl})
	lmt.SetBurst(burst)
	return lmt
}

// API limits the product, webhook and import status routes.
func (l *RouteLimits) API() gin.HandlerFunc {
	if l == nil {
		return limitBy(nil)
	}
	return limitBy(l.api)
}

// Upload limits POST /upload.
func (l *RouteLimits) Upload() gin.HandlerFunc {
	if l == nil {
		return limitBy(nil)
	}
	return limitBy(l.upload)
}

func limitBy(lmt *limiter.Limiter) gin.HandlerFunc {
	if lmt == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	retryAfter := "1"
	if rate := lmt.GetMax(); rate > 0 && rate < 1 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / rate)))
	}

	return func(c *gin.Context) {
		httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request)
		if httpError != nil {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(httpError.StatusCode, gin.H{"error": httpError.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware rejects requests whose X-Skuflow-Key header does not
// match the configured server secret.
func SecretKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}
		secretKey := conf.Server.SecretKey
		if secretKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}

		clientSecret := c.GetHeader(KeyHeader)

		if clientSecret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing secret key"})
			return
		}

		if !secureCompare(secretKey, clientSecret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}

		c.Next()
	}
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
