package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	robotstxt "github.com/temoto/robotstxt"
)

// Robots caches robots.txt verdicts per host. A fetch failure admits the
// host: unreachable robots.txt never blocks a crawl.
type Robots struct {
	userAgent string
	client    *http.Client

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobots builds the per-host cache.
func NewRobots(userAgent string, timeout time.Duration) *Robots {
	return &Robots{
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the URL may be fetched.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	data := r.lookup(ctx, u)
	if data == nil {
		return true
	}
	return data.FindGroup(r.userAgent).Test(u.Path)
}

func (r *Robots) lookup(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, ok := r.hosts[key]
	r.mu.Unlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, u)

	r.mu.Lock()
	r.hosts[key] = data
	r.mu.Unlock()
	return data
}

func (r *Robots) fetch(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
