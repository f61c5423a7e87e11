package domain

import (
	"fmt"
	"strings"
)

// Criteria is a predicate over a request context, used both to match a
// transition against an event and as an execution precondition.
type Criteria interface {
	Test(rc *RequestContext) (bool, error)
	String() string
}

// WildcardID is the event id that matches any event.
const WildcardID = "*"

type wildcard struct{}

// Wildcard matches every event.
func Wildcard() Criteria { return wildcard{} }

func (wildcard) Test(*RequestContext) (bool, error) { return true, nil }
func (wildcard) String() string                     { return WildcardID }

type eventIs string

// EventIs matches events whose id equals id exactly.
// The wildcard id "*" yields Wildcard().
func EventIs(id string) Criteria {
	if id == WildcardID {
		return Wildcard()
	}
	return eventIs(id)
}

func (c eventIs) Test(rc *RequestContext) (bool, error) {
	return rc.Event().ID == string(c), nil
}

func (c eventIs) String() string { return string(c) }

type not struct{ inner Criteria }

// Not negates c.
func Not(c Criteria) Criteria { return not{inner: c} }

func (c not) Test(rc *RequestContext) (bool, error) {
	ok, err := c.inner.Test(rc)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (c not) String() string { return "!" + c.inner.String() }

type expr string

// Expr evaluates source with the request's evaluator and interprets the result as a boolean.
func Expr(source string) Criteria { return expr(source) }

func (c expr) Test(rc *RequestContext) (bool, error) {
	v, err := evaluate(rc, string(c))
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

func (c expr) String() string { return "${" + string(c) + "}" }

type chain []Criteria

// Chain is an ordered AND of its members. Evaluation stops at the first
// member that returns false or fails.
func Chain(members ...Criteria) Criteria {
	flat := make(chain, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		if inner, ok := m.(chain); ok {
			flat = append(flat, inner...)
			continue
		}
		flat = append(flat, m)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return flat
}

func (c chain) Test(rc *RequestContext) (bool, error) {
	for _, m := range c {
		ok, err := m.Test(rc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c chain) String() string {
	parts := make([]string, len(c))
	for i, m := range c {
		parts[i] = m.String()
	}
	return strings.Join(parts, " && ")
}

// EvaluatorMissingError is returned when an expression is used without a configured evaluator.
type EvaluatorMissingError struct {
	Expression string
}

func (e *EvaluatorMissingError) Error() string {
	return fmt.Sprintf("no expression evaluator configured for '%s'", e.Expression)
}

func evaluate(rc *RequestContext, source string) (any, error) {
	ev := rc.Evaluator()
	if ev == nil {
		return nil, &EvaluatorMissingError{Expression: source}
	}
	return ev.Eval(rc, source)
}

// EvalString evaluates source and renders the result as a string.
func EvalString(rc *RequestContext, source string) (string, error) {
	v, err := evaluate(rc, source)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}

// Truthy applies loose boolean semantics to an evaluated value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		clean := strings.ToLower(strings.TrimSpace(t))
		return clean != "" && clean != "false" && clean != "0" && clean != "no"
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
