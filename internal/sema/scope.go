package sema

import "github.com/logbie/wfl-sub001/internal/ast"

// SymbolKind distinguishes the three binding forms the scope tree tracks.
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymAction
	SymParam
)

// Symbol is one name binding: a variable, an action, or a parameter.
type Symbol struct {
	Name string
	Kind SymbolKind
	Decl ast.Node
}

// Scope is one node of the global/shared/action-local/block-local scope
// tree. A lookup walks Parent chains, so inner blocks see outer bindings -
// genuine nested lexical scope, unlike a plan-time variable-flattening
// approach that has no need for it because every step runs from one flat
// map.
type Scope struct {
	Parent  *Scope
	Kind    string // "global", "action", "block"
	symbols map[string]*Symbol
}

func newScope(parent *Scope, kind string) *Scope {
	return &Scope{Parent: parent, Kind: kind, symbols: make(map[string]*Symbol)}
}

// define binds name in s, returning false (without binding) if name is
// already bound directly in s (not an ancestor - shadowing an outer name in
// an inner scope is allowed and flagged separately as E2003).
func (s *Scope) define(sym *Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// resolve walks s and its ancestors for name, returning the nearest binding
// and the scope it is bound in.
func (s *Scope) resolve(name string) (*Symbol, *Scope, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym, cur, true
		}
	}
	return nil, nil, false
}

// shadows reports whether name is already bound in an ancestor of s (used
// to raise E2003 when defining a new binding in a nested scope).
func (s *Scope) shadows(name string) bool {
	if s.Parent == nil {
		return false
	}
	_, _, found := s.Parent.resolve(name)
	return found
}

// names collects every name visible from s, for fuzzy "did you mean"
// suggestions.
func (s *Scope) names() []string {
	seen := map[string]bool{}
	var out []string
	for cur := s; cur != nil; cur = cur.Parent {
		for n := range cur.symbols {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
