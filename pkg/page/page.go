// Package page turns rendered marketplace HTML into a sequence of raw item
// elements. It knows about markup (selectors, links, images) but nothing
// about prices, brands or filtering.
package page

import (
	"fmt"
	"iter"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxFallbackTitle is how many runes of raw text stand in for a missing title.
const maxFallbackTitle = 100

// Selectors lists the CSS selectors tried, in order, for each item field.
// For Items the first selector with any match wins; for Title and Link the
// first selector matching inside an item wins.
type Selectors struct {
	Items []string
	Title []string
	Link  []string
	Image []string
}

// DefaultSelectors returns selectors tuned for marketplace search and
// profile pages. They are best-effort and expected to drift.
func DefaultSelectors() Selectors {
	return Selectors{
		Items: []string{
			`[data-testid="marketplace-item"]`,
			`div[role="article"]`,
			`a[href*="/marketplace/item/"]`,
			`div[data-pagelet*="marketplace"]`,
		},
		Title: []string{
			`[data-testid="marketplace-item-title"]`,
			`span[dir="auto"]`,
			`h3`,
			`strong`,
		},
		Link: []string{
			`a[href*="/marketplace/item/"]`,
		},
		Image: []string{
			`img[src]`,
		},
	}
}

// Element is one raw item as found on the page.
type Element struct {
	Text     string
	Title    string
	Link     string
	ImageURL string
}

// Document is a parsed page snapshot.
type Document struct {
	doc       *goquery.Document
	base      *url.URL
	selectors Selectors
}

// Parse parses src, the HTML rendered from pageURL. pageURL is used to
// resolve relative links and may be empty.
func Parse(src, pageURL string, sel Selectors) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing page html: %w", err)
	}

	var base *url.URL
	if pageURL != "" {
		base, err = url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("parsing page url %q: %w", pageURL, err)
		}
	}

	return &Document{doc: doc, base: base, selectors: sel}, nil
}

// Elements yields at most limit item elements (limit <= 0 means no cap).
// Elements are built lazily as the sequence is consumed.
func (d *Document) Elements(limit int) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		items := d.items()
		n := items.Length()
		if limit > 0 && n > limit {
			n = limit
		}
		for i := range n {
			if !yield(d.element(items.Eq(i))) {
				return
			}
		}
	}
}

// Count returns the number of item elements matched on the page.
func (d *Document) Count() int {
	return d.items().Length()
}

func (d *Document) items() *goquery.Selection {
	for _, s := range d.selectors.Items {
		if found := d.doc.Find(s); found.Length() > 0 {
			return found
		}
	}
	return d.doc.Selection.Slice(0, 0)
}

func (d *Document) element(s *goquery.Selection) Element {
	text := collapseSpace(textOf(s))

	return Element{
		Text:     text,
		Title:    d.title(s, text),
		Link:     d.link(s),
		ImageURL: d.attr(s, d.selectors.Image, "src"),
	}
}

func (d *Document) title(s *goquery.Selection, text string) string {
	for _, sel := range d.selectors.Title {
		if t := collapseSpace(textOf(s.Find(sel).First())); t != "" {
			return t
		}
	}
	return truncate(text, maxFallbackTitle)
}

func (d *Document) link(s *goquery.Selection) string {
	if href := d.attr(s, d.selectors.Link, "href"); href != "" {
		return href
	}

	// The item itself, or an ancestor, may be the anchor.
	var anchor *goquery.Selection
	if goquery.NodeName(s) == "a" {
		anchor = s
	} else {
		anchor = s.Closest("a")
	}
	if href, ok := anchor.Attr("href"); ok {
		return d.resolve(href)
	}
	return ""
}

func (d *Document) attr(s *goquery.Selection, selectors []string, name string) string {
	for _, sel := range selectors {
		if v, ok := s.Find(sel).First().Attr(name); ok && strings.TrimSpace(v) != "" {
			return d.resolve(v)
		}
	}
	return ""
}

func (d *Document) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if d.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(u).String()
}

// Canonical strips query and fragment from a listing link so the same item
// reached through different tracking parameters maps to one identity.
func Canonical(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// textOf joins the text nodes under s with spaces. Selection.Text
// concatenates adjacent nodes, which glues "2018" onto its neighbours.
func textOf(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	return truncate(s, n)
}
