package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ReservedPrefix marks attribute names owned by the engine.
// Callers may not write "sys" or any "sys."-prefixed name into a scope.
const ReservedPrefix = "sys"

// Attribute is a single named value, used for ordered serialization of a Scope.
type Attribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Scope is a mutable, insertion-ordered attribute container.
// Re-putting an existing name replaces its value but keeps its position.
type Scope struct {
	names  []string
	values map[string]any
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]any)}
}

// ScopeFromMap creates a scope from a map. Names are inserted in sorted order
// so that the result is deterministic.
func ScopeFromMap(m map[string]any) (*Scope, error) {
	s := NewScope()
	for _, name := range sortedKeys(m) {
		if err := s.Put(name, m[name]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ScopeFromAttributes rebuilds a scope from its serialized form.
// Reserved names are accepted here because they were written by the engine.
func ScopeFromAttributes(attrs []Attribute) *Scope {
	s := NewScope()
	for _, a := range attrs {
		s.set(a.Name, a.Value)
	}
	return s
}

// IsReserved reports whether name belongs to the engine namespace.
func IsReserved(name string) bool {
	return name == ReservedPrefix || strings.HasPrefix(name, ReservedPrefix+".")
}

// Put stores value under name.
func (s *Scope) Put(name string, value any) error {
	if name == "" {
		return fmt.Errorf("%w: attribute name cannot be empty", ErrIllegalState)
	}
	if IsReserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	s.set(name, value)
	return nil
}

func (s *Scope) set(name string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, exists := s.values[name]; !exists {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Get returns the value stored under name.
func (s *Scope) Get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Contains reports whether name is present.
func (s *Scope) Contains(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Remove deletes name and returns the previous value, if any.
func (s *Scope) Remove(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	delete(s.values, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of attributes.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the attribute names in insertion order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Attributes returns the ordered attribute list.
func (s *Scope) Attributes() []Attribute {
	if s == nil {
		return nil
	}
	out := make([]Attribute, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, Attribute{Name: n, Value: s.values[n]})
	}
	return out
}

// Map returns a shallow copy of the attributes as a map.
func (s *Scope) Map() map[string]any {
	out := make(map[string]any, s.Len())
	if s == nil {
		return out
	}
	for _, n := range s.names {
		out[n] = s.values[n]
	}
	return out
}

// Merge copies every attribute of other into s; other wins on duplicates.
func (s *Scope) Merge(other *Scope) {
	if other == nil {
		return
	}
	for _, n := range other.names {
		s.set(n, other.values[n])
	}
}

// Clone returns a shallow copy.
func (s *Scope) Clone() *Scope {
	c := NewScope()
	c.Merge(s)
	return c
}

// Clear removes every attribute.
func (s *Scope) Clear() {
	s.names = nil
	s.values = make(map[string]any)
}

// MergedModel builds the read-only model exposed to views and expressions.
// Precedence for duplicate names is request > flow > conversation.
func MergedModel(request, flow, conversation *Scope) *Scope {
	model := NewScope()
	model.Merge(conversation)
	model.Merge(flow)
	model.Merge(request)
	return model
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
