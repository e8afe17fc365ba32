package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/internal/repository"
	"github.com/qau-se/cfms-api/internal/service"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheResponse serves folder list/dashboard GETs from Redis for the
// configured TTL. Responses are keyed per user so faculty scoping never
// leaks across callers. Any non-GET under the group invalidates the
// whole cached view.
func CacheResponse(cache *repository.CacheRepository, metrics *service.MetricsService, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}

		if c.Request.Method != http.MethodGet {
			c.Next()
			if c.Writer.Status() < http.StatusBadRequest {
				_ = cache.DeleteByPattern(c.Request.Context(), "httpcache:*")
			}
			return
		}

		userID := ""
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok {
				userID = claims.UserID
			}
		}
		key := "httpcache:" + userID + ":" + c.Request.URL.RequestURI()

		start := time.Now()
		var cached cachedResponse
		err := cache.Get(c.Request.Context(), key, &cached)
		if metrics != nil {
			metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
			c.Abort()
			return
		}
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			c.Next()
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			_ = cache.Set(c.Request.Context(), key, cachedResponse{
				Status: c.Writer.Status(),
				Body:   capture.buf.Bytes(),
			}, ttl)
		}
	}
}
