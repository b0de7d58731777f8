package crawler

import (
	"context"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserRenderer renders JS-heavy documentation with a real browser via
// rod before converting it.
type BrowserRenderer struct {
	browserAddr string
	timeout     time.Duration
}

// NewBrowserRenderer connects to a remote devtools URL when browserAddr is
// set, otherwise rod launches a local browser.
func NewBrowserRenderer(browserAddr string, timeout time.Duration) *BrowserRenderer {
	return &BrowserRenderer{browserAddr: browserAddr, timeout: timeout}
}

func (r *BrowserRenderer) Render(ctx context.Context, rawURL string) (*RenderedPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	browser := rod.New().Context(ctx).Timeout(r.timeout)
	if r.browserAddr != "" {
		browser = browser.ControlURL(r.browserAddr)
	}
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	defer browser.MustClose()

	page, err := browser.Page(proto.TargetCreateTarget{URL: u.String()})
	if err != nil {
		return nil, err
	}
	defer page.MustClose()

	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return nil, err
	}

	rendered, err := convertHTML(u, htmlStr)
	if err != nil {
		return nil, err
	}
	rendered.Status = 200
	return rendered, nil
}
