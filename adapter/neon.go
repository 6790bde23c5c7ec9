package adapter

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/cloudimpl/rowql/core"
)

func init() {
	core.RegisterSource("neon", openNEON)
}

// NEON has no Go ecosystem parser (it's Nette's small indentation-
// based config format, not used widely enough to have one), so this
// adapter is the one place in the module that earns a hand-rolled
// parser rather than reaching for a library.
type neonSource struct {
	path string
	root interface{}
}

func openNEON(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	defer f.Close()

	var lines []neonLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := stripNeonComment(raw)
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		indent := countIndent(trimmed)
		lines = append(lines, neonLine{indent: indent, text: strings.TrimSpace(trimmed)})
	}
	if err := scanner.Err(); err != nil {
		return nil, invalidFormatErr(path, err)
	}

	p := &neonParser{lines: lines}
	root, _, err := p.parseBlock(0, 0)
	if err != nil {
		return nil, invalidFormatErr(path, err)
	}
	return &neonSource{path: path, root: root}, nil
}

func (s *neonSource) Label() string { return s.path }
func (s *neonSource) Close() error  { return nil }

func (s *neonSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	rows, err := rowsFromDocument(s.root, selector)
	if err != nil {
		return nil, err
	}
	return &sliceRowIterator{rows: rows}, nil
}

type neonLine struct {
	indent int
	text   string
}

type neonParser struct {
	lines []neonLine
}

func countIndent(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

func stripNeonComment(line string) string {
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// parseBlock parses every line at exactly indent starting at pos,
// returning either a mapping (key: value lines) or a sequence (- item
// lines), whichever the block's first line indicates.
func (p *neonParser) parseBlock(pos int, indent int) (interface{}, int, error) {
	if pos >= len(p.lines) || p.lines[pos].indent < indent {
		return core.NewMap(), pos, nil
	}
	blockIndent := p.lines[pos].indent
	if strings.HasPrefix(p.lines[pos].text, "- ") || p.lines[pos].text == "-" {
		return p.parseSequence(pos, blockIndent)
	}
	return p.parseMapping(pos, blockIndent)
}

func (p *neonParser) parseMapping(pos int, indent int) (interface{}, int, error) {
	m := core.NewMap()
	for pos < len(p.lines) && p.lines[pos].indent == indent {
		line := p.lines[pos]
		key, value, hasValue := strings.Cut(line.text, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		pos++
		if hasValue && value != "" {
			m.Set(key, neonScalar(value))
			continue
		}
		if pos < len(p.lines) && p.lines[pos].indent > indent {
			child, next, err := p.parseBlock(pos, p.lines[pos].indent)
			if err != nil {
				return nil, pos, err
			}
			m.Set(key, child)
			pos = next
			continue
		}
		m.Set(key, nil)
	}
	return m, pos, nil
}

func (p *neonParser) parseSequence(pos int, indent int) (interface{}, int, error) {
	var out []interface{}
	for pos < len(p.lines) && p.lines[pos].indent == indent && (strings.HasPrefix(p.lines[pos].text, "- ") || p.lines[pos].text == "-") {
		item := strings.TrimPrefix(p.lines[pos].text, "-")
		item = strings.TrimSpace(item)
		pos++
		if item == "" {
			if pos < len(p.lines) && p.lines[pos].indent > indent {
				child, next, err := p.parseBlock(pos, p.lines[pos].indent)
				if err != nil {
					return nil, pos, err
				}
				out = append(out, child)
				pos = next
				continue
			}
			out = append(out, nil)
			continue
		}
		if key, value, hasColon := strings.Cut(item, ":"); hasColon && strings.TrimSpace(value) != "" {
			inline := core.NewMap()
			inline.Set(strings.TrimSpace(key), neonScalar(strings.TrimSpace(value)))
			out = append(out, inline)
			continue
		}
		out = append(out, neonScalar(item))
	}
	if out == nil {
		out = []interface{}{}
	}
	return out, pos, nil
}

func neonScalar(s string) interface{} {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return core.CoerceScalar(s)
}
