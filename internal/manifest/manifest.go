// Package manifest implements the JAR manifest line grammar: parsing
// META-INF/MANIFEST.MF-style section files into ordered attribute maps and
// emitting them back out with the JAR spec's 72-byte continuation wrapping.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/obriencj-go/javadiff/internal/textutil"
)

// ErrMalformed is the sentinel wrapped by every grammar violation.
var ErrMalformed = errors.New("manifest: malformed input")

// MalformedLine reports a line that is neither a valid header nor a valid
// continuation of the preceding one.
type MalformedLine struct {
	Line int
	Text string
}

func (e *MalformedLine) Error() string {
	return fmt.Sprintf("manifest: malformed line %d: %q", e.Line, e.Text)
}

func (e *MalformedLine) Unwrap() error { return ErrMalformed }

// Attr is one ordered key/value pair within a Section, preserving the
// original casing of its key as written.
type Attr struct {
	Key   string
	Value string
}

// Section is an ordered bag of attributes, either the manifest's main
// section (no "Name:" attribute) or a named per-entry section.
type Section struct {
	Name  string // empty for the main section
	Attrs []Attr
}

// Get looks up a value by case-insensitive key, per the JAR spec's treatment
// of attribute names.
func (s *Section) Get(key string) (string, bool) {
	for _, a := range s.Attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key (case-insensitively) or appends a new
// attribute if none exists yet.
func (s *Section) Set(key, value string) {
	for i, a := range s.Attrs {
		if strings.EqualFold(a.Key, key) {
			s.Attrs[i].Value = value
			return
		}
	}
	s.Attrs = append(s.Attrs, Attr{Key: key, Value: value})
}

// Manifest is a parsed MANIFEST.MF-grammar document: one main section
// followed by zero or more named per-entry sections, in file order.
type Manifest struct {
	Main     Section
	Sections []Section
}

// Section looks up a named per-entry section by its "Name:" attribute.
func (m *Manifest) Section(name string) (*Section, bool) {
	for i := range m.Sections {
		if m.Sections[i].Name == name {
			return &m.Sections[i], true
		}
	}
	return nil, false
}

// Parse decodes a manifest document. CRLF and LF line endings are both
// accepted on read (per the JAR spec's own leniency); a header line matches
// `^[!-9;-~]+: `, and a continuation line is exactly one leading space. A
// blank line terminates the current section. The document is split into
// blank-line-delimited blocks first, then each block's header/continuation
// lines are parsed into a Section — Name may appear anywhere within a
// per-entry section, not necessarily first, so sections can't be filed by
// name until a full block has been read.
func Parse(data []byte) (*Manifest, error) {
	normalized := textutil.NormalizeUTF8LF(data)
	blocks := splitBlocks(normalized)
	if len(blocks) == 0 {
		return &Manifest{}, nil
	}

	m := &Manifest{}
	for bi, block := range blocks {
		sec, err := parseBlock(block)
		if err != nil {
			return nil, err
		}
		if bi == 0 {
			m.Main = sec
		} else {
			if name, ok := sec.Get("Name"); ok {
				sec.Name = name
			}
			m.Sections = append(m.Sections, sec)
		}
	}
	return m, nil
}

type rawLine struct {
	no   int
	text string
}

func splitBlocks(normalized []byte) [][]rawLine {
	lines := strings.Split(string(normalized), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var blocks [][]rawLine
	var cur []rawLine
	for i, line := range lines {
		if line == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, rawLine{no: i + 1, text: line})
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func parseBlock(lines []rawLine) (Section, error) {
	var sec Section
	var pendingKey string
	var pendingVal strings.Builder

	flush := func() {
		if pendingKey != "" {
			sec.Attrs = append(sec.Attrs, Attr{Key: pendingKey, Value: pendingVal.String()})
			pendingKey = ""
			pendingVal.Reset()
		}
	}

	for _, rl := range lines {
		line := rl.text
		if strings.HasPrefix(line, " ") {
			if pendingKey == "" {
				return sec, &MalformedLine{Line: rl.no, Text: line}
			}
			pendingVal.WriteString(line[1:])
			continue
		}

		flush()

		idx := strings.Index(line, ": ")
		if idx <= 0 || !isValidHeaderName(line[:idx]) {
			return sec, &MalformedLine{Line: rl.no, Text: line}
		}
		pendingKey = line[:idx]
		pendingVal.WriteString(line[idx+2:])
	}
	flush()
	return sec, nil
}

// isValidHeaderName checks the JAR spec's header character class:
// [!-9;-~]+ — printable ASCII excluding ':' (0x3a).
func isValidHeaderName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range []byte(s) {
		if c < '!' || c > '~' || c == ':' {
			return false
		}
	}
	return true
}

const wrapWidth = 72

// Emit renders a Manifest back to bytes: CRLF line endings, 72-byte wrapped
// continuation lines (counting the "Name: "/leading-space prefix), sections
// in the order they were parsed or appended, each section's attributes in
// insertion order, terminated by a blank line.
func Emit(m *Manifest) []byte {
	var buf bytes.Buffer
	emitSection(&buf, m.Main)
	buf.WriteString("\r\n")
	for _, sec := range m.Sections {
		emitSection(&buf, sec)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func emitSection(buf *bytes.Buffer, sec Section) {
	for _, a := range sec.Attrs {
		writeWrapped(buf, a.Key+": "+a.Value)
	}
}

func writeWrapped(buf *bytes.Buffer, line string) {
	b := []byte(line)
	for len(b) > wrapWidth {
		buf.Write(b[:wrapWidth])
		buf.WriteString("\r\n")
		b = append([]byte(" "), b[wrapWidth:]...)
	}
	buf.Write(b)
	buf.WriteString("\r\n")
}
