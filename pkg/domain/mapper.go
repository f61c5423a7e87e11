package domain

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Source prefixes understood by AttributeMapper. A source without a prefix
// reads from the source flow scope.
const (
	SourceFlowScope         = "flowScope"
	SourceRequestScope      = "requestScope"
	SourceConversationScope = "conversationScope"
	SourceEvent             = "event"
)

// MissingPolicy decides what happens when a mapping source does not exist.
type MissingPolicy int

const (
	// MissingStrict fails the mapping with a *MappingError wrapping ErrMissingAttribute.
	MissingStrict MissingPolicy = iota
	// MissingNullFill writes nil to the target.
	MissingNullFill
)

func (p MissingPolicy) String() string {
	if p == MissingNullFill {
		return "null-fill"
	}
	return "strict"
}

// Mapping copies one source expression into one target attribute.
type Mapping struct {
	Source string `json:"source" yaml:"source" mapstructure:"source"`
	Target string `json:"target" yaml:"target" mapstructure:"target"`
}

// AttributeMapper is an ordered list of mappings applied in order.
type AttributeMapper struct {
	Mappings []Mapping
	Policy   MissingPolicy
}

// NewMapper builds a strict mapper. Each pair is "source" or "source:target";
// when the target is omitted the last path segment of the source is used.
func NewMapper(pairs ...string) *AttributeMapper {
	m := &AttributeMapper{}
	for _, p := range pairs {
		src, tgt, ok := strings.Cut(p, ":")
		if !ok {
			tgt = src[strings.LastIndex(src, ".")+1:]
		}
		m.Mappings = append(m.Mappings, Mapping{Source: strings.TrimSpace(src), Target: strings.TrimSpace(tgt)})
	}
	return m
}

// Map evaluates every mapping against rc, reading unprefixed sources from
// from and writing targets into to. Mapping stops at the first error and to
// is only written when every mapping succeeds.
func (m *AttributeMapper) Map(rc *RequestContext, from, to *Scope) error {
	if m == nil {
		return nil
	}
	staged := NewScope()
	for _, mp := range m.Mappings {
		v, found, err := m.resolve(rc, from, mp.Source)
		if err != nil {
			return &MappingError{Source: mp.Source, Target: mp.Target, Err: err}
		}
		if !found {
			if m.Policy == MissingStrict {
				return &MappingError{Source: mp.Source, Target: mp.Target, Err: ErrMissingAttribute}
			}
			v = nil
		}
		if err := staged.Put(mp.Target, v); err != nil {
			return &MappingError{Source: mp.Source, Target: mp.Target, Err: err}
		}
	}
	to.Merge(staged)
	return nil
}

func (m *AttributeMapper) resolve(rc *RequestContext, from *Scope, source string) (any, bool, error) {
	if source == "" {
		return nil, false, fmt.Errorf("%w: empty mapping source", ErrIllegalState)
	}
	head, rest, _ := strings.Cut(source, ".")

	var root any
	var found bool
	switch head {
	case SourceFlowScope, SourceRequestScope, SourceConversationScope:
		if rest == "" {
			return nil, false, fmt.Errorf("%w: source '%s' names a scope without an attribute", ErrIllegalState, source)
		}
		scope := from
		switch head {
		case SourceRequestScope:
			scope = rc.RequestScope()
		case SourceConversationScope:
			scope = rc.ConversationScope()
		}
		head, rest, _ = strings.Cut(rest, ".")
		root, found = scope.Get(head)
	case SourceEvent:
		if rest == "" {
			return nil, false, fmt.Errorf("%w: source '%s' names the event without a parameter", ErrIllegalState, source)
		}
		head, rest, _ = strings.Cut(rest, ".")
		root, found = rc.Event().Params[head]
	default:
		root, found = from.Get(head)
	}
	if !found || rest == "" {
		return root, found, nil
	}
	return lookupPath(root, strings.Split(rest, "."))
}

// lookupPath walks nested maps. Structs are decoded into maps with mapstructure.
func lookupPath(v any, path []string) (any, bool, error) {
	cur := v
	for _, seg := range path {
		switch node := cur.(type) {
		case nil:
			return nil, false, nil
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false, nil
			}
			cur = next
		case *Scope:
			next, ok := node.Get(seg)
			if !ok {
				return nil, false, nil
			}
			cur = next
		default:
			var decoded map[string]any
			if err := mapstructure.Decode(cur, &decoded); err != nil {
				return nil, false, fmt.Errorf("cannot read '%s' from %T: %w", seg, cur, err)
			}
			next, ok := decoded[seg]
			if !ok {
				return nil, false, nil
			}
			cur = next
		}
	}
	return cur, true, nil
}
