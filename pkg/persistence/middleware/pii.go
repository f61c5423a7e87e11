package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/ports"
)

// Mask replaces the value of every masked attribute.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ExecutionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of attributes whose
// names match the patterns, in every session scope and the conversation scope.
// Masking is one-way: loaded snapshots carry the mask, so every event after
// the first save reads Mask in place of the original value. Use it for
// attributes a flow no longer needs once stored; encrypt the rest.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ExecutionStore) ports.ExecutionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	// Snapshots share attribute values with the live stack; copy before masking.
	cloned := *snap
	cloned.Sessions = make([]domain.SessionRecord, len(snap.Sessions))
	for i, rec := range snap.Sessions {
		rec.Attributes = m.maskAttributes(rec.Attributes)
		cloned.Sessions[i] = rec
	}
	cloned.Conversation = m.maskAttributes(snap.Conversation)

	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, executionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, executionID string) error {
	return m.next.Delete(ctx, executionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func (m *piiMiddleware) maskAttributes(attrs []domain.Attribute) []domain.Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]domain.Attribute, len(attrs))
	for i, a := range attrs {
		switch {
		case m.matches(a.Name):
			out[i] = domain.Attribute{Name: a.Name, Value: Mask}
		default:
			out[i] = domain.Attribute{Name: a.Name, Value: m.maskValue(a.Value)}
		}
	}
	return out
}

func (m *piiMiddleware) maskValue(v any) any {
	sub, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(sub))
	for k, val := range sub {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.maskValue(val)
	}
	return out
}

func (m *piiMiddleware) matches(name string) bool {
	for _, p := range m.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
