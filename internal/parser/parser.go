// Package parser splits Markdown documents into frontmatter and named
// sections, and extracts the leading @directive lines of each section.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	directiveRe = regexp.MustCompile(`^@([A-Za-z][A-Za-z0-9_-]*)(?:\s+(.*?))?\s*$`)
	sectionRe   = regexp.MustCompile(`^##\s+(.+?)\s*#*\s*$`)
)

// Directive is one @name value line.
type Directive struct {
	Name  string
	Value string
}

// Section is one "## Name" block of a document.
type Section struct {
	Name  string
	Index int
	// Raw is everything between the heading line and the next heading.
	Raw string
	// Directives maps a lowercased directive name to its values in document order.
	Directives map[string][]string
	// Sequence lists every directive line in document order.
	Sequence []Directive
	// Content is Raw with the leading directive block removed, trimmed.
	Content string
}

// Has reports whether the section declares the directive.
func (s Section) Has(name string) bool {
	_, ok := s.Directives[name]
	return ok
}

// First returns the first value of a directive, or "" when absent.
func (s Section) First(name string) string {
	if v := s.Directives[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Document is a parsed Markdown document.
type Document struct {
	Frontmatter map[string]interface{}
	// Preamble is the body text before the first section heading.
	Preamble string
	Sections []Section
	Title    string
}

// Section returns the section with the given name (case-insensitive).
func (d *Document) Section(name string) (Section, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Section{}, false
}

// Parse splits raw Markdown into frontmatter, preamble, and sections.
func Parse(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	preamble, sections := SplitSections(body)
	return &Document{
		Frontmatter: fm,
		Preamble:    preamble,
		Sections:    sections,
		Title:       deriveTitle(fm, preamble),
	}, nil
}

// SplitSections cuts body at level-two headings outside fenced code blocks.
func SplitSections(body string) (string, []Section) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	var (
		preamble []string
		sections []Section
		current  *Section
		raw      []string
		inFence  bool
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Raw = strings.Join(raw, "\n")
		current.Directives, current.Sequence, current.Content = ExtractDirectives(current.Raw)
		sections = append(sections, *current)
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if m := sectionRe.FindStringSubmatch(line); m != nil {
				flush()
				current = &Section{Name: m[1], Index: len(sections)}
				raw = nil
				continue
			}
		}
		if current == nil {
			preamble = append(preamble, line)
		} else {
			raw = append(raw, line)
		}
	}
	flush()
	return strings.TrimSpace(strings.Join(preamble, "\n")), sections
}

// ExtractDirectives reads the leading @name value lines of a section.
// Blank lines inside the block are skipped; the first other line ends it.
func ExtractDirectives(raw string) (map[string][]string, []Directive, string) {
	directives := make(map[string][]string)
	var seq []Directive
	lines := strings.Split(raw, "\n")

	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		m := directiveRe.FindStringSubmatch(trimmed)
		if m == nil {
			break
		}
		d := Directive{Name: strings.ToLower(m[1]), Value: strings.TrimSpace(m[2])}
		directives[d.Name] = append(directives[d.Name], d.Value)
		seq = append(seq, d)
	}
	content := strings.TrimSpace(strings.Join(lines[i:], "\n"))
	return directives, seq, content
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole document as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading of the preamble, otherwise empty string.
func deriveTitle(fm map[string]interface{}, preamble string) string {
	if s := FrontmatterString(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(preamble, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// FrontmatterString returns a string-valued frontmatter key, or "".
func FrontmatterString(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// FrontmatterBool returns a bool-valued frontmatter key and whether it was set.
func FrontmatterBool(fm map[string]interface{}, key string) (bool, bool) {
	if fm == nil {
		return false, false
	}
	v, ok := fm[key].(bool)
	return v, ok
}
