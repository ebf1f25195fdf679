package api

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"miner-scanner/config"
	"miner-scanner/internal/mw"
	"miner-scanner/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, st ScanState, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())
	if cfg.RequestIPHeader != "" {
		r.RemoteIPHeaders = []string{cfg.RequestIPHeader}
	}
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	handler := NewHandler(st, s, webpushOptions)

	readLimit := mw.ReadLimiter(cfg).Middleware(nil)
	scanLimiter := mw.ScanLimiter(cfg)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := cache.New(ttl, 2*ttl)
	versioned := mw.Cache(cacheStore, ttl, func(c *gin.Context) string {
		return fmt.Sprintf("%s#%d#%t", c.Request.RequestURI, st.Version(), st.Scanning())
	})

	r.GET("/", handler.Index)
	r.GET("/healthz", handler.Healthz)
	r.POST("/scan", scanLimiter.Middleware(handler.ScanThrottled), handler.PostScan)

	api := r.Group("/api")
	{
		api.GET("/miners", readLimit, versioned, handler.GetMiners)
		api.POST("/scan", scanLimiter.Middleware(handler.APIScanThrottled), handler.PostAPIScan)
		api.GET("/inventory", readLimit, handler.GetInventory)

		subs := api.Group("", readLimit)
		subs.GET("/subscriptions", handler.GetSubscription)
		subs.PUT("/subscriptions", handler.PutSubscription)
		subs.DELETE("/subscriptions", handler.DeleteSubscription)
		subs.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
