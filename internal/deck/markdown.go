package deck

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lexa/internal/apperr"
)

// separators are tried in order; the first one present on a line splits it.
var separators = []string{"::", "="}

type frontmatter struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Sequence int    `yaml:"sequence"`
}

func parseMarkdown(data []byte) (*Deck, error) {
	fm, body, offset, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	d := &Deck{GroupID: fm.ID, Title: fm.Title, Sequence: fm.Sequence}
	if d.GroupID != "" {
		d.GroupID = Slug(d.GroupID)
	}

	for i, line := range strings.Split(body, "\n") {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		p.Line = offset + i + 1
		d.Pairs = append(d.Pairs, p)
	}
	return d, nil
}

// parseLine extracts a pair from one body line. Blank lines, headings and
// lines without a separator are skipped.
func parseLine(line string) (Pair, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Pair{}, false
	}
	for _, bullet := range []string{"- ", "* "} {
		line = strings.TrimPrefix(line, bullet)
	}
	for _, sep := range separators {
		term, tr, found := strings.Cut(line, sep)
		if !found {
			continue
		}
		term, tr = strings.TrimSpace(term), strings.TrimSpace(tr)
		if term == "" || tr == "" {
			return Pair{}, false
		}
		return Pair{Term: term, Translation: tr}, true
	}
	return Pair{}, false
}

// splitFrontmatter separates YAML frontmatter between leading --- delimiters from the body.
// offset is the number of lines consumed before the body starts.
func splitFrontmatter(data []byte) (frontmatter, string, int, error) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	lead := bytes.Count(data[:len(data)-len(trimmed)], []byte("\n"))

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), 0, nil
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), 0, nil
	}

	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return fm, "", 0, fmt.Errorf("%w: frontmatter: %v", apperr.ErrInvalidInput, err)
	}
	after := rest[idx+1+len(delim):]
	// Skip the remainder of the closing delimiter line.
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	consumed := lead + bytes.Count(trimmed[:len(trimmed)-len(after)], []byte("\n"))
	return fm, string(after), consumed, nil
}
