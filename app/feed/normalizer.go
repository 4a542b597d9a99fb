package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

type Normalizer struct {
	dateFormat string
	location   *time.Location
}

func NewNormalizer(dateFormat string, location *time.Location) *Normalizer {
	if location == nil {
		location = time.UTC
	}
	return &Normalizer{
		dateFormat: dateFormat,
		location:   location,
	}
}

// DetectDialect classifies a document by its root element: <feed> is Atom and
// <rss> is RSS. Anything else, RDF and JSON feeds included, is unknown.
func DetectDialect(data []byte) Dialect {
	data = trimLeading(data)
	if len(data) == 0 || data[0] != '<' {
		return DialectUnknown
	}

	p := xpp.NewXMLPullParser(bytes.NewReader(data), false, charset.NewReaderLabel)
	for {
		event, err := p.Next()
		if err != nil || event == xpp.EndDocument {
			return DialectUnknown
		}
		if event == xpp.StartTag {
			break
		}
	}

	switch strings.ToLower(p.Name) {
	case "feed":
		return DialectAtom
	case "rss":
		return DialectRSS
	default:
		return DialectUnknown
	}
}

// trimLeading drops whitespace and byte order marks before the first element.
func trimLeading(data []byte) []byte {
	for len(data) > 0 {
		switch data[0] {
		case ' ', '\r', '\n', '\t', 0x00, 0xEF, 0xBB, 0xBF, 0xFE, 0xFF:
			data = data[1:]
		default:
			return data
		}
	}
	return data
}

// Run extracts at most maxPosts posts from an Atom or RSS document. Documents
// of any other shape yield no posts and no error.
func (n *Normalizer) Run(data []byte, maxPosts int) ([]Post, error) {
	if maxPosts <= 0 {
		return []Post{}, nil
	}

	switch DetectDialect(data) {
	case DialectAtom:
		return n.runAtom(data, maxPosts)
	case DialectRSS:
		return n.runRSS(data, maxPosts)
	default:
		return []Post{}, nil
	}
}

func (n *Normalizer) runAtom(data []byte, maxPosts int) ([]Post, error) {
	parser := &atom.Parser{}
	doc, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: atom: %v", ErrParse, err)
	}

	entries := doc.Entries
	if len(entries) > maxPosts {
		entries = entries[:maxPosts]
	}

	posts := make([]Post, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		post := Post{
			Title:     strings.TrimSpace(entry.Title),
			Link:      atomLink(entry.Links),
			Published: n.formatDate(entry.PublishedParsed, entry.Published),
		}
		if post.Title == "" || post.Link == "" {
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

func (n *Normalizer) runRSS(data []byte, maxPosts int) ([]Post, error) {
	parser := &rss.Parser{}
	doc, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: rss: %v", ErrParse, err)
	}

	items := doc.Items
	if len(items) > maxPosts {
		items = items[:maxPosts]
	}

	posts := make([]Post, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		post := Post{
			Title:     strings.TrimSpace(item.Title),
			Link:      rssLink(item),
			Published: n.formatDate(item.PubDateParsed, item.PubDate),
		}
		if post.Title == "" || post.Link == "" {
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// atomLink prefers the alternate link and falls back to the first link with an href.
func atomLink(links []*atom.Link) string {
	fallback := ""
	for _, link := range links {
		if link == nil {
			continue
		}
		href := strings.TrimSpace(link.Href)
		if href == "" {
			continue
		}
		if strings.EqualFold(link.Rel, "alternate") {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

// rssLink returns the text of the item's first <link> element.
func rssLink(item *rss.Item) string {
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	return strings.TrimSpace(item.Link)
}

// formatDate renders the parsed timestamp, or the raw text when gofeed could
// not parse it. Unparsable values render as an empty string.
func (n *Normalizer) formatDate(parsed *time.Time, raw string) string {
	if parsed != nil {
		return parsed.In(n.location).Format(n.dateFormat)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// dateparse guesses at anything numeric; a missing year means it guessed wrong.
	t, err := dateparse.ParseIn(raw, n.location)
	if err != nil || t.IsZero() || t.Year() == 0 {
		return ""
	}
	return t.In(n.location).Format(n.dateFormat)
}
