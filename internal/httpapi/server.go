// Package httpapi exposes the read endpoint, explicit retries, health and metrics over HTTP.
package httpapi

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewsService is the part of the Query Facade the handlers need.
type NewsService interface {
	GetNews(ctx context.Context, topic string, page int) (usecase.NewsPage, error)
	Article(ctx context.Context, id string) (domain.Article, error)
	Retry(ctx context.Context, id string) (domain.Article, error)
}

// Deps wires the handlers.
type Deps struct {
	News    NewsService
	Healthy func() bool
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// ModelLabel and Topics are shown on the index page.
	ModelLabel string
	Topics     []string
}

type renderer struct {
	templates *template.Template
}

func (r renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// New creates and configures the Echo HTTP server.
func New(deps Deps) *echo.Echo {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer{templates: template.Must(template.ParseFS(templateFS, "templates/*.html"))}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.InfoContext(c.Request().Context(), "http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"duration_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	h := &handlers{news: deps.News, healthy: deps.Healthy, logger: logger, modelLabel: deps.ModelLabel, topics: deps.Topics}

	e.GET("/", h.index)
	e.GET("/get-news", h.getNews)
	e.GET("/api/articles/:id", h.getArticle)
	e.POST("/api/articles/:id/retry", h.retryArticle)
	e.GET("/health", h.health)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	return e
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func Shutdown(ctx context.Context, e *echo.Echo) error {
	if err := e.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
