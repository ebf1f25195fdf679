package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// KeyFunc derives the cache key of a request.
type KeyFunc func(c *gin.Context) string

// RequestURIKey caches by request URI.
func RequestURIKey(c *gin.Context) string {
	return c.Request.RequestURI
}

// Cache is a middleware for in-memory caching of GET requests. Responses are stored
// under key(c), so a key that embeds a data version invalidates itself.
func Cache(store *cache.Cache, duration time.Duration, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = RequestURIKey
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		k := key(c)
		if resp, found := store.Get(k); found {
			cached := resp.(cachedResponse)
			for h, v := range cached.headers {
				c.Writer.Header()[h] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			response := cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}
			store.Set(k, response, duration)
		}
	}
}
