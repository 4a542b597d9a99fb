package feed

import "errors"

// Post is a normalized feed entry as written into an issue directive.
type Post struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectAtom
	DialectRSS
)

func (d Dialect) String() string {
	switch d {
	case DialectAtom:
		return "atom"
	case DialectRSS:
		return "rss"
	default:
		return "unknown"
	}
}

var (
	ErrFetch = errors.New("feed fetch failed")
	ErrParse = errors.New("feed parse failed")
)
