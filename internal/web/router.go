package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentattendance/internal/auth"
	"studentattendance/internal/httpmiddleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Options configure the router.
type Options struct {
	Limiter     *httpmiddleware.SimpleTokenBucket
	Metrics     http.Handler
	CORSOrigins []string
	Log         *zap.Logger
}

// NewRouter wires the pages, the session stream, the JSON API and the ops endpoints.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(opts.Log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.SecurityHeaders())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	r.GET("/healthz", h.Healthz)

	limited := func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limited = opts.Limiter.OnLimit(h.TooManyAttempts).GinMiddleware()
	}

	r.GET("/", h.Index)
	r.POST("/login", limited, h.Login)
	r.POST("/register", limited, h.Register)
	r.POST("/logout", h.Logout)
	r.POST("/view", h.SwitchView)
	r.POST("/division", h.Division)
	r.POST("/attendance", h.Mark)
	r.POST("/entries/toggle", h.ToggleEntries)
	r.GET("/session/events", h.SessionEvents)

	api := r.Group("/api/v1")
	api.Use(corsMiddleware(opts.CORSOrigins))
	{
		apiLimited := func(c *gin.Context) { c.Next() }
		if opts.Limiter != nil {
			apiLimited = httpmiddleware.NewSimpleTokenBucket(0, opts.Limiter.Rate()).GinMiddleware()
		}
		api.POST("/auth/login", apiLimited, h.APILogin)

		authed := api.Group("", auth.BearerAuth(h.provider))
		authed.GET("/attendance", h.APIListAttendance)
		authed.POST("/attendance", h.APIMarkAttendance)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
