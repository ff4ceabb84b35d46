package render

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// StaticRenderer serves fixed HTML keyed by URL. It backs offline runs
// against saved pages and tests.
type StaticRenderer struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	opened int
	closed int
	seen   []Request
}

// NewStaticRenderer returns a renderer serving pages.
func NewStaticRenderer(pages map[string]string) *StaticRenderer {
	p := make(map[string]string, len(pages))
	for k, v := range pages {
		p[k] = v
	}
	return &StaticRenderer{pages: p, errs: map[string]error{}}
}

// NewFileRenderer serves the contents of path for every URL.
func NewFileRenderer(path string) (*StaticRenderer, error) {
	b, err := os.ReadFile(path) //nolint:gosec // operator-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("reading page fixture: %w", err)
	}
	return NewStaticRenderer(map[string]string{"*": string(b)}), nil
}

// Fail makes renders of url return err.
func (r *StaticRenderer) Fail(url string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[url] = err
}

// Set replaces the page served for url.
func (r *StaticRenderer) Set(url, html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[url] = html
}

// Open implements Renderer.
func (r *StaticRenderer) Open(context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	return &staticSession{r: r}, nil
}

// Sessions returns how many sessions were opened and closed.
func (r *StaticRenderer) Sessions() (opened, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed
}

// Requests returns every request rendered so far.
func (r *StaticRenderer) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.seen...)
}

type staticSession struct {
	r      *StaticRenderer
	once   sync.Once
	closed bool
}

func (s *staticSession) Render(ctx context.Context, req Request) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.closed {
		return Page{}, ErrClosed
	}
	s.r.seen = append(s.r.seen, req)

	if err, ok := s.r.errs[req.URL]; ok {
		return Page{}, fmt.Errorf("rendering %s: %w", req.URL, err)
	}
	html, ok := s.r.pages[req.URL]
	if !ok {
		html, ok = s.r.pages["*"]
	}
	if !ok {
		return Page{}, fmt.Errorf("rendering %s: no page", req.URL)
	}
	return Page{URL: req.URL, HTML: html}, nil
}

func (s *staticSession) Close() error {
	s.once.Do(func() {
		s.r.mu.Lock()
		defer s.r.mu.Unlock()
		s.closed = true
		s.r.closed++
	})
	return nil
}
