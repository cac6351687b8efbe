package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCoversBothSpans(t *testing.T) {
	a := Span{FileID: 0, Start: 5, End: 10}
	b := Span{FileID: 0, Start: 2, End: 7}
	got := Join(a, b)
	assert.Equal(t, Span{FileID: 0, Start: 2, End: 10}, got)
}

func TestJoinPanicsAcrossFiles(t *testing.T) {
	assert.Panics(t, func() {
		Join(Span{FileID: 0, Start: 0, End: 1}, Span{FileID: 1, Start: 0, End: 1})
	})
}

func TestFileLineColIsOneBased(t *testing.T) {
	f := NewFile(0, "main.wfl", "store x as 1\nstore y as 2\n")
	line, col := f.LineCol(0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)

	line, col = f.LineCol(13) // start of second line
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)
}

func TestFileLineReturnsTextWithoutNewline(t *testing.T) {
	f := NewFile(0, "main.wfl", "store x as 1\nstore y as 2\n")
	assert.Equal(t, "store x as 1", f.Line(1))
	assert.Equal(t, "store y as 2", f.Line(2))
	assert.Equal(t, "", f.Line(99))
}

func TestFileTextSlicesByByteRange(t *testing.T) {
	f := NewFile(0, "main.wfl", "store x as 1\n")
	got := f.Text(Span{FileID: 0, Start: 6, End: 7})
	assert.Equal(t, "x", got)
}

func TestRegistryAddAssignsSequentialIDs(t *testing.T) {
	reg := NewRegistry()
	f1 := reg.Add("a.wfl", "store a as 1\n")
	f2 := reg.Add("b.wfl", "store b as 2\n")
	assert.Equal(t, 0, f1.ID)
	assert.Equal(t, 1, f2.ID)
	assert.Same(t, f1, reg.Get(0))
	assert.Nil(t, reg.Get(99))
}

func TestRegistrySnippetIncludesCaretUnderColumn(t *testing.T) {
	reg := NewRegistry()
	f := reg.Add("main.wfl", "store total as 1\n")
	snippet := reg.Snippet(Span{FileID: f.ID, Start: 6, End: 11}, 1)
	require.Contains(t, snippet, "main.wfl")
	assert.Contains(t, snippet, "store total as 1")
	assert.Contains(t, snippet, "^")
}

func TestRegistrySnippetUnknownFileIsEmpty(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, "", reg.Snippet(Span{FileID: 42}, 1))
}
