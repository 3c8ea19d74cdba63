package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/chartloom/internal/config"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/render"
	"github.com/KaramelBytes/chartloom/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CookieName identifies the dashboard session.
const CookieName = "chartloom_session"

//go:embed templates/index.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Server is the dashboard HTTP front end.
type Server struct {
	cfg    *config.Global
	store  *session.Store
	log    *slog.Logger
	svg    render.Renderer
	engine *gin.Engine

	prepare dataset.Options
}

// New builds the gin engine and registers every route.
func New(cfg *config.Global, store *session.Store, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	dec, err := cfg.DecimalRune()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		log:     log,
		svg:     render.NewSVG(render.Options{Width: cfg.ChartWidth, Height: cfg.ChartHeight}),
		prepare: dataset.Options{Delimiter: delim, DecimalSeparator: dec},
	}

	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.MaxMultipartMemory = s.maxUpload()

	r.GET("/", s.index)
	r.POST("/upload", s.upload)
	r.GET("/dashboard", s.dashboard)
	r.GET("/chart.svg", s.chartSVG)
	r.GET("/efficiency.svg", s.efficiencySVG)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.store.Len()})
	})

	api := r.Group("/api")
	{
		api.GET("/columns", s.columns)
		api.POST("/chart", s.chartJSON)
	}

	s.engine = r
	return s, nil
}

// Handler exposes the engine for http.Server and httptest.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) maxUpload() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 32
	}
	return int64(mb) << 20
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		switch {
		case status >= 500:
			log.Error("request", attrs...)
		case status >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}
