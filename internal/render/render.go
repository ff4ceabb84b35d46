// Package render drives a headless browser to produce the HTML of
// JavaScript-heavy marketplace pages.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const (
	// DefaultUserAgent is sent when a request does not set one.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// DefaultTimeout bounds one page load including scrolling.
	DefaultTimeout = 30 * time.Second

	defaultSettleDelay = 5 * time.Second
	defaultScrollDelay = 2 * time.Second
)

// ErrClosed is returned by Render after the session was closed.
var ErrClosed = errors.New("render session closed")

// Request describes one page load.
type Request struct {
	URL         string
	Timeout     time.Duration
	UserAgent   string
	Scrolls     int           // scroll-to-bottom passes after load
	SettleDelay time.Duration // wait after navigation before scrolling
	ScrollDelay time.Duration // wait after each scroll
}

// Page is a rendered document.
type Page struct {
	URL  string
	HTML string
}

// Session is an open browser. It must be closed on every path.
type Session interface {
	Render(ctx context.Context, req Request) (Page, error)
	Close() error
}

// Renderer opens browser sessions.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// ChromeRenderer launches headless Chrome through chromedp.
type ChromeRenderer struct {
	execPath string
	headless bool
	logger   *slog.Logger
}

// Option configures a ChromeRenderer.
type Option func(*ChromeRenderer)

// WithExecPath sets the browser binary. Empty means auto-detect.
func WithExecPath(path string) Option {
	return func(r *ChromeRenderer) {
		r.execPath = path
	}
}

// WithHeadless toggles headless mode.
func WithHeadless(h bool) Option {
	return func(r *ChromeRenderer) {
		r.headless = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *ChromeRenderer) {
		r.logger = l
	}
}

// NewChromeRenderer creates a ChromeRenderer.
func NewChromeRenderer(opts ...Option) *ChromeRenderer {
	r := &ChromeRenderer{
		headless: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a browser process. The returned session owns it until Close.
func (r *ChromeRenderer) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(1366, 900),
	)
	if bin := r.findBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	// The browser outlives ctx's deadline; only cancellation of the
	// session itself tears it down.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
	)

	// Start the browser eagerly so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	r.logger.Debug("browser session opened")

	return &chromeSession{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		logger: r.logger,
	}, nil
}

func (r *ChromeRenderer) findBinary() string {
	if r.execPath != "" {
		return r.execPath
	}
	if env := os.Getenv("CHROME_BIN"); env != "" {
		return env
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

type chromeSession struct {
	browserCtx context.Context //nolint:containedctx // chromedp tabs derive from the browser context
	cancel     context.CancelFunc
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (s *chromeSession) Render(ctx context.Context, req Request) (Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Page{}, ErrClosed
	}

	req = withDefaults(req)

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, req.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	actions := []chromedp.Action{
		emulateUserAgent(req.UserAgent),
		chromedp.Navigate(req.URL),
		chromedp.Sleep(req.SettleDelay),
	}
	for range req.Scrolls {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(req.ScrollDelay),
		)
	}

	var html, finalURL string
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("rendering %s: %w", req.URL, err)
	}

	s.logger.Debug("page rendered", "url", req.URL, "bytes", len(html))

	if finalURL == "" {
		finalURL = req.URL
	}
	return Page{URL: finalURL, HTML: html}, nil
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.logger.Debug("browser session closed")
	return nil
}

func withDefaults(req Request) Request {
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	if req.UserAgent == "" {
		req.UserAgent = DefaultUserAgent
	}
	if req.SettleDelay < 0 {
		req.SettleDelay = 0
	}
	if req.ScrollDelay <= 0 {
		req.ScrollDelay = defaultScrollDelay
	}
	return req
}

func emulateUserAgent(ua string) chromedp.Action {
	return emulation.SetUserAgentOverride(ua).WithAcceptLanguage("es-PE,es;q=0.9,en;q=0.8")
}

// DefaultRequest returns a request for url with the standard pacing.
func DefaultRequest(url string, scrolls int) Request {
	return Request{
		URL:         url,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		Scrolls:     scrolls,
		SettleDelay: defaultSettleDelay,
		ScrollDelay: defaultScrollDelay,
	}
}
