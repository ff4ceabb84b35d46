package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	got := withDefaults(Request{URL: "https://example.com", SettleDelay: -time.Second})
	assert.Equal(t, DefaultTimeout, got.Timeout)
	assert.Equal(t, DefaultUserAgent, got.UserAgent)
	assert.Equal(t, time.Duration(0), got.SettleDelay)
	assert.Equal(t, defaultScrollDelay, got.ScrollDelay)

	custom := withDefaults(Request{Timeout: time.Second, UserAgent: "ua", ScrollDelay: time.Millisecond})
	assert.Equal(t, time.Second, custom.Timeout)
	assert.Equal(t, "ua", custom.UserAgent)
	assert.Equal(t, time.Millisecond, custom.ScrollDelay)
}

func TestDefaultRequest(t *testing.T) {
	t.Parallel()

	req := DefaultRequest("https://example.com/search", 3)
	assert.Equal(t, 3, req.Scrolls)
	assert.Equal(t, defaultSettleDelay, req.SettleDelay)
	assert.Equal(t, DefaultUserAgent, req.UserAgent)
}

func TestStaticRenderer(t *testing.T) {
	t.Parallel()

	r := NewStaticRenderer(map[string]string{"https://a": "<html>a</html>"})
	r.Fail("https://b", errors.New("boom"))

	s, err := r.Open(context.Background())
	require.NoError(t, err)

	p, err := s.Render(context.Background(), Request{URL: "https://a"})
	require.NoError(t, err)
	assert.Equal(t, "<html>a</html>", p.HTML)

	_, err = s.Render(context.Background(), Request{URL: "https://b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = s.Render(context.Background(), Request{URL: "https://c"})
	require.Error(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Render(context.Background(), Request{URL: "https://a"})
	require.ErrorIs(t, err, ErrClosed)

	opened, closed := r.Sessions()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	assert.Len(t, r.Requests(), 3)
}

func TestStaticRenderer_CancelledContext(t *testing.T) {
	t.Parallel()

	r := NewStaticRenderer(map[string]string{"*": "<html></html>"})
	s, err := r.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Render(ctx, Request{URL: "https://x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileRenderer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>saved</html>"), 0o600))

	r, err := NewFileRenderer(path)
	require.NoError(t, err)
	s, err := r.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	p, err := s.Render(context.Background(), Request{URL: "https://anything"})
	require.NoError(t, err)
	assert.Equal(t, "<html>saved</html>", p.HTML)

	_, err = NewFileRenderer(filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
}
