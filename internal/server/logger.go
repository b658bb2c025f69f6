// file: internal/server/logger.go
// version: 2.0.0
// guid: 1d2e3f4a-5b6c-7d8e-9f0a-1b2c3d4e5f6a

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	ulid "github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/metrics"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// requestLogger tags each request with an id, logs its outcome and records
// request metrics under the matched route.
func requestLogger(entry *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(route, status, elapsed)

		fields := entry.WithFields(log.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"bytes":      c.Writer.Size(),
			"duration":   elapsed.String(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= 500:
			fields.Error("request failed")
		case status >= 400:
			fields.Info("request rejected")
		default:
			fields.Debug("request served")
		}
	}
}
