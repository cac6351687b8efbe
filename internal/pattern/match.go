package pattern

import (
	"strings"
	"unicode"
)

// matchState is threaded through the backtracking search: the input text
// (as runes, so classes operate on characters rather than bytes), the
// case-folding flag, and whether a match must end at the end of the text.
// Captures travel separately, as matchSeq's caps argument.
type matchState struct {
	text    []rune
	ic      bool
	mustEnd bool
}

// matchSeq tries to match atoms starting at pos, trying each atom's
// repetition counts non-greedy-first (ascending) unless Greedy is set, and
// recursing into the remaining atoms before committing to a count - the
// textbook backtracking-matcher shape, kept deliberately small since the
// atom set itself is small.
func (m *matchState) matchSeq(atoms []Atom, pos int, caps map[string]string) (bool, int, map[string]string) {
	if len(atoms) == 0 {
		if m.mustEnd && pos != len(m.text) {
			return false, 0, nil
		}
		return true, pos, caps
	}
	atom := atoms[0]
	rest := atoms[1:]

	switch atom.Kind {
	case AtomLiteral:
		lit := []rune(atom.Text)
		end := pos + len(lit)
		if end > len(m.text) {
			return false, 0, nil
		}
		if !m.runesEqual(m.text[pos:end], lit) {
			return false, 0, nil
		}
		return m.matchSeq(rest, end, caps)

	case AtomClass:
		return m.matchRepeated(atom, rest, pos, caps, func(r rune) bool { return classMatches(atom.Class, r) }, "")

	case AtomAnyOf:
		set := atom.Text
		return m.matchRepeated(atom, rest, pos, caps, func(r rune) bool { return m.inSet(set, r) }, "")

	case AtomPlaceholder:
		return m.matchRepeated(atom, rest, pos, caps, func(r rune) bool { return true }, atom.Name)

	case AtomAlternation:
		for _, branch := range atom.Branches {
			combined := append(append([]Atom{}, branch...), rest...)
			if ok, end, newCaps := m.matchSeq(combined, pos, caps); ok {
				return true, end, newCaps
			}
		}
		return false, 0, nil
	}
	return false, 0, nil
}

// matchRepeated tries atom.Min..atom.Max consecutive characters matching
// pred (ascending for non-greedy, descending for greedy), recursing into
// rest after each candidate count and returning on the first success -
// exactly what "non-greedy" and "greedy" mean operationally.
func (m *matchState) matchRepeated(atom Atom, rest []Atom, pos int, caps map[string]string, pred func(rune) bool, captureName string) (bool, int, map[string]string) {
	maxAvail := len(m.text) - pos
	hi := atom.Max
	if hi > maxAvail {
		hi = maxAvail
	}
	lo := atom.Min
	if lo > hi {
		return false, 0, nil
	}

	// Precompute the longest run of pred-matching characters from pos so
	// counts beyond it can be skipped.
	maxRun := 0
	for pos+maxRun < len(m.text) && maxRun < hi && pred(m.text[pos+maxRun]) {
		maxRun++
	}
	if maxRun < lo {
		return false, 0, nil
	}
	if hi > maxRun {
		hi = maxRun
	}

	try := func(count int) (bool, int, map[string]string) {
		end := pos + count
		newCaps := caps
		if captureName != "" {
			newCaps = cloneCaps(caps)
			newCaps[captureName] = string(m.text[pos:end])
		}
		return m.matchSeq(rest, end, newCaps)
	}

	if atom.Greedy {
		for count := hi; count >= lo; count-- {
			if ok, end, c := try(count); ok {
				return true, end, c
			}
		}
	} else {
		for count := lo; count <= hi; count++ {
			if ok, end, c := try(count); ok {
				return true, end, c
			}
		}
	}
	return false, 0, nil
}

func (m *matchState) runesEqual(a, b []rune) bool {
	if !m.ic {
		return string(a) == string(b)
	}
	return strings.EqualFold(string(a), string(b))
}

func (m *matchState) inSet(set string, r rune) bool {
	if m.ic {
		return strings.ContainsRune(strings.ToLower(set), unicode.ToLower(r))
	}
	return strings.ContainsRune(set, r)
}

func classMatches(class string, r rune) bool {
	switch class {
	case "digit":
		return unicode.IsDigit(r)
	case "letter":
		return unicode.IsLetter(r)
	case "whitespace":
		return unicode.IsSpace(r)
	case "vowel":
		return strings.ContainsRune("aeiouAEIOU", r)
	default:
		return false
	}
}

func cloneCaps(caps map[string]string) map[string]string {
	out := make(map[string]string, len(caps)+1)
	for k, v := range caps {
		out[k] = v
	}
	return out
}

// MatchResult is one successful match: its [start, end) rune range and any
// named placeholder captures.
type MatchResult struct {
	Start, End int
	Captures   map[string]string
}

// FullMatch reports whether text matches c in its entirety.
func (c *Compiled) FullMatch(text string) bool {
	st := &matchState{text: []rune(text), ic: c.IgnoreCase, mustEnd: true}
	ok, end, _ := st.matchSeq(c.Atoms, 0, map[string]string{})
	return ok && end == len(st.text)
}

// Search finds the first match anywhere in text (anchored at the start if
// AnchorBegin is set), returning ok=false if none exists.
func (c *Compiled) Search(text string) (MatchResult, bool) {
	st := &matchState{text: []rune(text), ic: c.IgnoreCase}
	starts := 1
	if !c.AnchorBegin {
		starts = len(st.text) + 1
	}
	for start := 0; start < starts; start++ {
		if ok, end, caps := st.matchSeq(c.Atoms, start, map[string]string{}); ok {
			if c.AnchorEnd && end != len(st.text) {
				continue
			}
			return MatchResult{Start: start, End: end, Captures: caps}, true
		}
	}
	return MatchResult{}, false
}

// Contains reports whether pattern c occurs anywhere in text.
func (c *Compiled) Contains(text string) bool {
	_, ok := c.Search(text)
	return ok
}

// Find returns the placeholder captures of the first match, or ok=false.
func (c *Compiled) Find(text string) (map[string]string, bool) {
	m, ok := c.Search(text)
	if !ok {
		return nil, false
	}
	return m.Captures, true
}

// ReplaceAll replaces every (non-overlapping, left-to-right) match of c in
// text with replacement, substituting `{name}` placeholders in replacement
// from each match's captures.
func (c *Compiled) ReplaceAll(text, replacement string) string {
	runes := []rune(text)
	var b strings.Builder
	pos := 0
	for pos <= len(runes) {
		st := &matchState{text: runes, ic: c.IgnoreCase}
		found := false
		for start := pos; start <= len(runes); start++ {
			if ok, end, caps := st.matchSeq(c.Atoms, start, map[string]string{}); ok {
				b.WriteString(string(runes[pos:start]))
				b.WriteString(substitutePlaceholders(replacement, caps))
				if end == start {
					if start < len(runes) {
						b.WriteRune(runes[start])
					}
					pos = start + 1
				} else {
					pos = end
				}
				found = true
				break
			}
		}
		if !found {
			b.WriteString(string(runes[pos:]))
			break
		}
	}
	return b.String()
}

func substitutePlaceholders(replacement string, caps map[string]string) string {
	var b strings.Builder
	r := []rune(replacement)
	for i := 0; i < len(r); i++ {
		if r[i] == '{' {
			j := i + 1
			for j < len(r) && r[j] != '}' {
				j++
			}
			if j < len(r) {
				name := string(r[i+1 : j])
				if v, ok := caps[name]; ok {
					b.WriteString(v)
					i = j
					continue
				}
			}
		}
		b.WriteRune(r[i])
	}
	return b.String()
}

// Split splits text on every match of c, the way `strings.Split` splits on
// a separator, but the separator here is itself a pattern match.
func (c *Compiled) Split(text string) []string {
	runes := []rune(text)
	var parts []string
	pos, last := 0, 0
	for pos <= len(runes) {
		st := &matchState{text: runes, ic: c.IgnoreCase}
		found := false
		for start := pos; start <= len(runes); start++ {
			if ok, end, _ := st.matchSeq(c.Atoms, start, map[string]string{}); ok && end > start {
				parts = append(parts, string(runes[last:start]))
				last = end
				pos = end
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	parts = append(parts, string(runes[last:]))
	return parts
}
