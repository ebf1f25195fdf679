package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// slowRequest is the duration above which requests are logged at warn level.
const slowRequest = time.Second

// RequestLogger logs every request through zerolog instead of gin's stdout writer,
// which would corrupt the terminal UI.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		took := time.Since(start)

		ev := log.Debug()
		switch {
		case c.Writer.Status() >= 500:
			ev = log.Error()
		case took > slowRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client", c.ClientIP()).
			Dur("took", took).
			Msg("http request")
	}
}
