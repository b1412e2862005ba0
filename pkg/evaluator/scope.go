package evaluator

import (
	"fmt"
	"sort"

	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

// Scope is a lexical scope for variable bindings.
// Reads walk the parent chain. Writes to a name bound in an ancestor update
// that ancestor; new names are bound locally and vanish with the scope.
type Scope struct {
	bindings map[string]Value
	parent   *Scope
}

// NewScope creates an empty root scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]Value)}
}

// Nested creates a child scope for an if, while, for or block body.
func (s *Scope) Nested() *Scope {
	return &Scope{bindings: make(map[string]Value), parent: s}
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Depth returns the number of enclosing scopes.
func (s *Scope) Depth() int {
	d := 0
	for p := s.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Add binds name to v. If name is already bound here or in an enclosing
// scope, the nearest existing binding is overwritten.
func (s *Scope) Add(name string, v Value) {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.bindings[name]; ok {
			cur.bindings[name] = v
			return
		}
	}
	s.bindings[name] = v
}

// Lookup returns the visible binding for name.
func (s *Scope) Lookup(name string) (Value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, nil
		}
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EScope,
		Message: fmt.Sprintf("identifier '%s' is not defined", name),
	}
}

// Has reports whether name is visible from this scope.
func (s *Scope) Has(name string) bool {
	_, err := s.Lookup(name)
	return err == nil
}

// IsEmpty reports whether no binding is visible from this scope.
func (s *Scope) IsEmpty() bool {
	for cur := s; cur != nil; cur = cur.parent {
		if len(cur.bindings) > 0 {
			return false
		}
	}
	return true
}

// Binding is a name/value pair.
type Binding struct {
	Name  string
	Value Value
}

// Bindings returns every visible binding sorted by name.
func (s *Scope) Bindings() []Binding {
	seen := make(map[string]bool)
	var out []Binding
	for cur := s; cur != nil; cur = cur.parent {
		for name, v := range cur.bindings {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, Binding{Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
