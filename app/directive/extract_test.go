package directive

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lysyi3m/issue-comb/app/feed"
)

const issueBody = "Weekly digest for the team.\n\n" +
	"```json\n" +
	`{"feed": "https://example.com/feed.xml", "label": "blog", "meta": {"nested": {"deep": true}}}` + "\n" +
	"```\n\n" +
	"Trailing notes stay here.\n"

func TestExtract(t *testing.T) {
	block, err := Extract(issueBody)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	span := issueBody[block.Start:block.End]
	if !strings.HasPrefix(span, `{"feed"`) || !strings.HasSuffix(span, `true}}}`) {
		t.Errorf("Expected widest brace span, got: %s", span)
	}

	url, ok := block.Directive.Feed()
	if !ok || url != "https://example.com/feed.xml" {
		t.Errorf("Expected feed 'https://example.com/feed.xml', got: %q (%t)", url, ok)
	}
}

func TestExtractAndReplaceOnlyChangesSpan(t *testing.T) {
	posts := []feed.Post{
		{Title: "First", Link: "https://example.com/1", Published: "2023-07-01 10:00:00"},
		{Title: "Second", Link: "https://example.com/2", Published: ""},
	}

	original := issueBody
	updated, err := ExtractAndReplace(issueBody, func(d *Directive) error {
		return d.SetPosts(posts)
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if issueBody != original {
		t.Error("Expected input text to be unchanged")
	}

	block, _ := Extract(original)
	prefix := original[:block.Start]
	suffix := original[block.End:]

	if !strings.HasPrefix(updated, prefix) {
		t.Errorf("Expected prefix to be preserved byte-for-byte")
	}
	if !strings.HasSuffix(updated, suffix) {
		t.Errorf("Expected suffix to be preserved byte-for-byte")
	}

	middle := updated[len(prefix) : len(updated)-len(suffix)]
	if !strings.HasPrefix(middle, "{\n  \"feed\": \"https://example.com/feed.xml\",\n  \"label\": \"blog\",") {
		t.Errorf("Expected indented directive with original key order, got:\n%s", middle)
	}
}

func TestRoundTripPosts(t *testing.T) {
	posts := []feed.Post{
		{Title: "Go 1.23 is released", Link: "https://go.dev/blog/go1.23?utm=a&b=c", Published: "2024-08-13 00:00:00"},
		{Title: "Quotes \"inside\" <tags>", Link: "https://example.com/q", Published: ""},
	}

	updated, err := ExtractAndReplace(issueBody, func(d *Directive) error {
		return d.SetPosts(posts)
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	block, err := Extract(updated)
	if err != nil {
		t.Fatalf("Expected re-extraction to succeed, got: %v", err)
	}

	got, err := block.Directive.Posts()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(got, posts) {
		t.Errorf("Expected %+v, got: %+v", posts, got)
	}

	var label string
	if ok, _ := block.Directive.Get("label", &label); !ok || label != "blog" {
		t.Errorf("Expected unrecognized key 'label' to survive, got: %q", label)
	}

	again, err := ExtractAndReplace(updated, func(d *Directive) error {
		return d.SetPosts(posts)
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if again != updated {
		t.Error("Expected rewriting with the same posts to be stable")
	}
}

func TestExtractNotFound(t *testing.T) {
	bodies := []string{
		"",
		"Just prose, no fences at all. {\"feed\": \"x\"}",
		"```go\nfunc main() { fmt.Println(\"{}\") }\n```",
		"```json\n[1, 2, 3]\n```",
		"```json\n{\"feed\": \"never closed\"}",
		"```jsonc\n{\"feed\": \"x\"}\n```",
	}

	for _, body := range bodies {
		if _, err := Extract(body); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %q, got: %v", body, err)
		}
	}
}

func TestExtractSkipsOtherFences(t *testing.T) {
	body := "```go\nx := map[string]int{}\n```\n\n```JSON\n{\"feed\": \"https://example.com/a\"}\n```\n"

	block, err := Extract(body)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if url, _ := block.Directive.Feed(); url != "https://example.com/a" {
		t.Errorf("Expected feed from json fence, got: %s", url)
	}
}

func TestExtractMalformed(t *testing.T) {
	body := "Intro\n```json\n{\"feed\": \"https://example.com/a\",}\n```\n"

	_, err := Extract(body)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got: %v", err)
	}

	updated, err := ExtractAndReplace(body, func(d *Directive) error {
		t.Error("Expected transform not to be called for malformed directive")
		return nil
	})
	if err == nil || updated != "" {
		t.Errorf("Expected empty result and error, got: %q, %v", updated, err)
	}
}

func TestExtractAndReplaceTransformError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ExtractAndReplace(issueBody, func(d *Directive) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected transform error, got: %v", err)
	}
}

func TestReplaceRejectsOutOfRangeSpan(t *testing.T) {
	block := &Block{Start: 5, End: 50, Directive: New()}
	if _, err := block.Replace("short"); err == nil {
		t.Error("Expected error for out of range span")
	}
}

func TestExtractIgnoresBackticksInsideProse(t *testing.T) {
	bodies := []string{
		"Put your config in a ```json block like below:\n\n```json\n{\"feed\": \"https://example.com/atom.xml\"}\n```\n",
		"Use `` ``` `` to fence code.\n\n```json\n{\"feed\": \"https://example.com/atom.xml\"}\n```\n",
		"Inline ``` and more ``` here.\n   ```json\n{\"feed\": \"https://example.com/atom.xml\"}\n   ```",
	}

	for _, body := range bodies {
		block, err := Extract(body)
		if err != nil {
			t.Errorf("Expected directive in %q, got: %v", body, err)
			continue
		}
		if url, _ := block.Directive.Feed(); url != "https://example.com/atom.xml" {
			t.Errorf("Expected feed 'https://example.com/atom.xml', got: %q", url)
		}
	}
}

func TestExtractFenceRules(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		found bool
	}{
		{"indented four spaces is not a fence", "    ```json\n{\"feed\": \"x\"}\n    ```\n", false},
		{"closing fence must stand alone", "```json\n{\"feed\": \"x\"} ```\n", false},
		{"longer opener needs longer closer", "````json\n{\"feed\": \"x\"}\n```\n````\n", true},
		{"crlf line endings", "```json\r\n{\"feed\": \"x\"}\r\n```\r\n", true},
		{"info string with backtick", "```json`\n{\"feed\": \"x\"}\n```\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.body)
			if tt.found && err != nil {
				t.Errorf("Expected directive, got: %v", err)
			}
			if !tt.found && !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got: %v", err)
			}
		})
	}
}

func TestExtractTagEndsOnASCIIWhitespaceOnly(t *testing.T) {
	// 0x85 and 0xA0 are Unicode spaces as runes but not as raw bytes.
	for _, suffix := range []string{"\x85", "\xa0", "…", "\u00a0"} {
		body := "```json" + suffix + "\n{\"feed\": \"x\"}\n```\n"
		if _, err := Extract(body); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected tag %q to be rejected, got: %v", "json"+suffix, err)
		}
	}

	body := "```json\t\n{\"feed\": \"x\"}\n```\n"
	if _, err := Extract(body); err != nil {
		t.Errorf("Expected tab after tag to be accepted, got: %v", err)
	}
}
