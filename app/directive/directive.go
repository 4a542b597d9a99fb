package directive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lysyi3m/issue-comb/app/feed"
)

const (
	KeyFeed  = "feed"
	KeyPosts = "posts"
)

var (
	ErrNotFound  = errors.New("directive not found")
	ErrMalformed = errors.New("directive malformed")
)

// Directive is a JSON object that keeps its key order and the raw encoding
// of every value it was parsed with.
type Directive struct {
	keys   []string
	values map[string]json.RawMessage
}

func New() *Directive {
	return &Directive{values: make(map[string]json.RawMessage)}
}

func Parse(data []byte) (*Directive, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}

	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected key, got %v", ErrMalformed, tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}
		d.setRaw(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	return d, nil
}

func (d *Directive) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

func (d *Directive) Get(key string, v any) (bool, error) {
	raw, ok := d.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (d *Directive) Set(key string, v any) error {
	raw, err := marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	d.setRaw(key, raw)
	return nil
}

// Feed returns the feed URL, if the directive names a non-empty one.
func (d *Directive) Feed() (string, bool) {
	var url string
	ok, err := d.Get(KeyFeed, &url)
	if !ok || err != nil || url == "" {
		return "", false
	}
	return url, true
}

func (d *Directive) SetPosts(posts []feed.Post) error {
	if posts == nil {
		posts = []feed.Post{}
	}
	return d.Set(KeyPosts, posts)
}

func (d *Directive) Posts() ([]feed.Post, error) {
	var posts []feed.Post
	if _, err := d.Get(KeyPosts, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (d *Directive) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(d.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indented renders the directive with two-space indentation.
func (d *Directive) Indented() ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (d *Directive) setRaw(key string, raw json.RawMessage) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
}

// marshal encodes v without HTML escaping so links keep their literal '&'.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
