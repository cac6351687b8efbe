// Package source holds the byte-precise span type shared by every phase of
// the pipeline (lexer, merger, parser, semantic analyzer, type checker,
// interpreter, diagnostics) along with a small registry of loaded files so
// a Span can be turned back into a line/column and a code snippet.
package source

import (
	"strings"

	"github.com/logbie/wfl-sub001/internal/invariant"
)

// Span is a byte range in one source file. start <= end always, and both
// indices are valid offsets into the file they reference - the lexer is the
// only producer of Spans from raw offsets; every other phase only ever
// widens or copies a Span it was handed.
type Span struct {
	FileID int
	Start  int
	End    int
}

// Join returns the smallest Span covering both a and b. Used by the parser
// to compute a node's Span from its first and last constituent token.
func Join(a, b Span) Span {
	invariant.Invariant(a.FileID == b.FileID, "cannot join spans from different files")
	s := a
	if b.Start < s.Start {
		s.Start = b.Start
	}
	if b.End > s.End {
		s.End = b.End
	}
	return s
}

// File is one loaded source file, kept around so diagnostics can render a
// code frame and the debug report can print a snippet around a crash site.
type File struct {
	ID       int
	Name     string
	Contents string
	lineStarts []int
}

// NewFile registers a source file's contents under id.
func NewFile(id int, name, contents string) *File {
	f := &File{ID: id, Name: name, Contents: contents}
	f.lineStarts = []int{0}
	for i, b := range []byte(contents) {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// LineCol converts a byte offset into a 1-based line and column.
func (f *File) LineCol(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Contents) {
		offset = len(f.Contents)
	}
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	col = offset - f.lineStarts[lo] + 1
	return line, col
}

// Line returns the text of the given 1-based line number, without its
// trailing newline.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[n-1]
	end := len(f.Contents)
	if n < len(f.lineStarts) {
		end = f.lineStarts[n] - 1
	}
	if end < start {
		end = start
	}
	return f.Contents[start:end]
}

// Text returns the slice of the file covered by sp.
func (f *File) Text(sp Span) string {
	if sp.Start < 0 || sp.End > len(f.Contents) || sp.Start > sp.End {
		return ""
	}
	return f.Contents[sp.Start:sp.End]
}

// Registry maps FileIDs to their loaded File, so any phase that only holds
// a Span can still recover source text for error rendering.
type Registry struct {
	files map[int]*File
}

// NewRegistry creates an empty file registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[int]*File)}
}

// Add registers contents under name and returns the new File.
func (r *Registry) Add(name, contents string) *File {
	id := len(r.files)
	f := NewFile(id, name, contents)
	r.files[id] = f
	return f
}

// Get returns the File for id, or nil if unknown.
func (r *Registry) Get(id int) *File {
	return r.files[id]
}

// Snippet renders a frame around sp: the file name, then up to
// contextLines lines either side of sp's line as `   NNNN | text`, with
// sp's line marked `->` and followed by a caret under sp's column.
func (r *Registry) Snippet(sp Span, contextLines int) string {
	f := r.Get(sp.FileID)
	if f == nil {
		return ""
	}
	line, col := f.LineCol(sp.Start)

	var b strings.Builder
	b.WriteString(f.Name)
	first := line - contextLines
	if first < 1 {
		first = 1
	}
	last := line + contextLines
	for n := first; n <= last; n++ {
		text := f.Line(n)
		if n > len(f.lineStarts) {
			break
		}
		marker := "  "
		if n == line {
			marker = "->"
		}
		b.WriteString("\n")
		b.WriteString(marker)
		b.WriteString(" ")
		b.WriteString(padLineNo(n))
		b.WriteString(" | ")
		b.WriteString(text)
		if n == line {
			b.WriteString("\n     | ")
			if col > 0 {
				b.WriteString(strings.Repeat(" ", col-1))
			}
			b.WriteString("^")
		}
	}
	return b.String()
}

func padLineNo(n int) string {
	s := itoa(n)
	for len(s) < 4 {
		s = " " + s
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
