package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"NewsSummarizer/internal/domain"
)

type handlers struct {
	news       NewsService
	healthy    func() bool
	logger     *slog.Logger
	modelLabel string
	topics     []string
}

type articleJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Status      string    `json:"status"`
	Summary     *string   `json:"summary"`
}

type newsJSON struct {
	Topic    string        `json:"topic"`
	Articles []articleJSON `json:"articles"`
	Page     int           `json:"page"`
	HasMore  bool          `json:"has_more"`
	Stale    bool          `json:"stale"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toArticleJSON(a domain.Article) articleJSON {
	out := articleJSON{
		ID:          a.ID,
		Title:       a.Title,
		Link:        a.Link,
		Source:      a.Source,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt.UTC(),
		Status:      string(a.Status),
	}
	if a.Status == domain.StatusDone {
		summary := a.Summary
		out.Summary = &summary
	}
	return out
}

func (h *handlers) getNews(c echo.Context) error {
	page := 1
	if err := echo.QueryParamsBinder(c).Int("page", &page).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON{Error: "page must be an integer"})
	}

	result, err := h.news.GetNews(c.Request().Context(), c.QueryParam("q"), page)
	if err != nil {
		if errors.Is(err, domain.ErrFetch) {
			return c.JSON(http.StatusBadGateway, map[string]any{
				"articles": []articleJSON{},
				"error":    "news source unavailable, try again later",
			})
		}
		return h.fail(c, err)
	}

	body := newsJSON{
		Topic:    result.Topic,
		Articles: make([]articleJSON, 0, len(result.Articles)),
		Page:     result.Page,
		HasMore:  result.HasMore,
		Stale:    result.Stale,
	}
	for _, a := range result.Articles {
		body.Articles = append(body.Articles, toArticleJSON(a))
	}
	return c.JSON(http.StatusOK, body)
}

func (h *handlers) getArticle(c echo.Context) error {
	article, err := h.news.Article(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toArticleJSON(article))
}

func (h *handlers) retryArticle(c echo.Context) error {
	article, err := h.news.Retry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, toArticleJSON(article))
}

func (h *handlers) health(c echo.Context) error {
	if h.healthy != nil && !h.healthy() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", map[string]any{
		"ModelName": h.modelLabel,
		"Topics":    h.topics,
	})
}

func (h *handlers) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrArticleNotFound):
		return c.JSON(http.StatusNotFound, errorJSON{Error: "article not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, errorJSON{Error: "only failed articles can be retried"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("store unavailable", "error", err, "uri", c.Request().RequestURI)
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: "storage unavailable"})
	default:
		h.logger.Error("request failed", "error", err, "uri", c.Request().RequestURI)
		return c.JSON(http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}
