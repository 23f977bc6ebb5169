package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		entry := utils.InfoLogger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  status,
			"latency": latency.String(),
			"path":    path,
			"ip":      c.ClientIP(),
		})
		if rid, ok := c.Get(utils.RequestIDKey); ok {
			entry = entry.WithField("request_id", rid)
		}
		switch {
		case status >= 500:
			entry.Warn("request")
		case path == "/ping" || path == "/healthz":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}
