package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"docdex/internal/config"
)

// RenderedPage is one fetched and converted page.
type RenderedPage struct {
	URL      string
	Title    string
	Markdown string
	Links    []string
	Status   int
}

// Renderer fetches a URL and returns its content as markdown plus the
// outbound links.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*RenderedPage, error)
}

// NewRenderer picks the engine from config.
func NewRenderer(cfg config.RendererConfig, userAgent string) Renderer {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if cfg.Engine == "browser" {
		return NewBrowserRenderer(cfg.BrowserAddr, timeout)
	}
	return NewHTTPRenderer(timeout, userAgent)
}

// HTTPRenderer fetches with net/http and converts via goquery plus
// html-to-markdown. It is the default engine for static documentation.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
}

func NewHTTPRenderer(timeout time.Duration, userAgent string) *HTTPRenderer {
	return &HTTPRenderer{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, rawURL string) (*RenderedPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	page, err := convertHTML(u, string(body))
	if err != nil {
		return nil, err
	}
	page.Status = resp.StatusCode
	return page, nil
}

// convertHTML turns raw HTML into the renderer output shared by both
// engines.
func convertHTML(u *url.URL, htmlStr string) (*RenderedPage, error) {
	converter := htmlmd.NewConverter(u.Hostname(), true, nil)
	markdown, mdErr := converter.ConvertString(htmlStr)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(htmlStr)))
	if err != nil {
		if mdErr != nil {
			return nil, mdErr
		}
		return &RenderedPage{URL: u.String(), Markdown: markdown}, nil
	}

	if mdErr != nil {
		markdown = doc.Text()
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if normalized, ok := Normalize(u, href); ok {
			links = append(links, normalized)
		}
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	return &RenderedPage{
		URL:      u.String(),
		Title:    title,
		Markdown: markdown,
		Links:    links,
	}, nil
}
