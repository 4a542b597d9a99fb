package directive

import (
	"fmt"
	"strings"
)

const fence = "```"

// Block is a directive together with the byte span [Start, End) of its JSON
// object inside the text it was extracted from.
type Block struct {
	Start     int
	End       int
	Directive *Directive
}

// Extract finds the first ```json fenced block holding a {...} span and
// parses the widest such span as a directive. Fences only count at the start
// of a line, indented by at most three spaces.
func Extract(text string) (*Block, error) {
	pos := 0
	for pos < len(text) {
		lineEnd := endOfLine(text, pos)

		width, infoStart := openingFence(text, pos, lineEnd)
		if width == 0 {
			pos = nextLine(text, lineEnd)
			continue
		}

		contentStart, isJSON := jsonTag(text, infoStart, lineEnd)
		if !isJSON {
			contentStart = lineEnd
		}

		contentEnd, closeEnd, ok := closingFence(text, nextLine(text, lineEnd), width)
		if !ok {
			return nil, ErrNotFound
		}
		pos = nextLine(text, closeEnd)

		if !isJSON {
			continue
		}

		content := text[contentStart:contentEnd]
		first := strings.IndexByte(content, '{')
		last := strings.LastIndexByte(content, '}')
		if first < 0 || last < first {
			continue
		}

		start := contentStart + first
		end := contentStart + last + 1

		d, err := Parse([]byte(text[start:end]))
		if err != nil {
			return nil, err
		}

		return &Block{Start: start, End: end, Directive: d}, nil
	}

	return nil, ErrNotFound
}

// fenceAt returns the backtick run length of a fence starting the line at pos
// and the offset right after it. Width is 0 when the line is not a fence.
func fenceAt(text string, pos, lineEnd int) (int, int) {
	i := pos
	for i < lineEnd && i-pos < 3 && text[i] == ' ' {
		i++
	}

	run := i
	for run < lineEnd && text[run] == '`' {
		run++
	}
	if run-i < len(fence) {
		return 0, pos
	}

	return run - i, run
}

// openingFence is fenceAt restricted to valid openers: the info string of a
// backtick fence may not contain backticks.
func openingFence(text string, pos, lineEnd int) (int, int) {
	width, after := fenceAt(text, pos, lineEnd)
	if width == 0 || strings.IndexByte(text[after:lineEnd], '`') >= 0 {
		return 0, pos
	}
	return width, after
}

// closingFence looks for a line holding only a fence at least width long and
// returns the start and end offsets of that line.
func closingFence(text string, from, width int) (int, int, bool) {
	for pos := from; pos < len(text); {
		lineEnd := endOfLine(text, pos)

		w, after := fenceAt(text, pos, lineEnd)
		if w >= width && strings.TrimSpace(text[after:lineEnd]) == "" {
			return pos, lineEnd, true
		}

		pos = nextLine(text, lineEnd)
	}
	return 0, 0, false
}

func endOfLine(text string, pos int) int {
	if i := strings.IndexByte(text[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(text)
}

func nextLine(text string, lineEnd int) int {
	return min(lineEnd+1, len(text))
}

// jsonTag reports whether the info string of the fence opened at pos is
// "json" and returns the offset right after the tag.
func jsonTag(text string, pos, lineEnd int) (int, bool) {
	i := pos
	for i < lineEnd && isSpace(text[i]) {
		i++
	}
	tagStart := i
	for i < lineEnd && !isSpace(text[i]) && text[i] != '{' {
		i++
	}
	return i, strings.EqualFold(text[tagStart:i], "json")
}

// isSpace matches ASCII whitespace only; bytes of multi-byte runes never qualify.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// Replace re-serializes the directive and splices it over the original span.
func (b *Block) Replace(text string) (string, error) {
	if b.Start < 0 || b.End > len(text) || b.Start > b.End {
		return "", fmt.Errorf("directive span [%d, %d) out of range for text of length %d", b.Start, b.End, len(text))
	}

	rendered, err := b.Directive.Indented()
	if err != nil {
		return "", fmt.Errorf("failed to render directive: %w", err)
	}

	var sb strings.Builder
	sb.Grow(len(text) - (b.End - b.Start) + len(rendered))
	sb.WriteString(text[:b.Start])
	sb.Write(rendered)
	sb.WriteString(text[b.End:])

	return sb.String(), nil
}

// ExtractAndReplace extracts the directive from text, hands it to transform
// and returns text with the updated directive in place of the original one.
func ExtractAndReplace(text string, transform func(*Directive) error) (string, error) {
	block, err := Extract(text)
	if err != nil {
		return "", err
	}

	if err := transform(block.Directive); err != nil {
		return "", err
	}

	return block.Replace(text)
}
