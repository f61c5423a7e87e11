package observability

import "github.com/aretw0/flowstack/pkg/domain"

// Aggregator combines multiple listeners into a single one. Notifications
// are forwarded in registration order.
type Aggregator struct {
	listeners []domain.Listener
}

var _ domain.Listener = (*Aggregator)(nil)

// NewAggregator creates a new aggregator.
func NewAggregator(ls ...domain.Listener) *Aggregator {
	a := &Aggregator{}
	for _, l := range ls {
		a.Add(l)
	}
	return a
}

// Add registers a listener. Nil listeners are ignored.
func (a *Aggregator) Add(l domain.Listener) {
	if l != nil {
		a.listeners = append(a.listeners, l)
	}
}

// Len returns the number of registered listeners.
func (a *Aggregator) Len() int { return len(a.listeners) }

func (a *Aggregator) Started(rc *domain.RequestContext, s *domain.FlowSession) {
	for _, l := range a.listeners {
		l.Started(rc, s)
	}
}

func (a *Aggregator) EventSignaled(rc *domain.RequestContext, ev domain.Event) {
	for _, l := range a.listeners {
		l.EventSignaled(rc, ev)
	}
}

func (a *Aggregator) StateTransitioned(rc *domain.RequestContext, previous, next *domain.State) {
	for _, l := range a.listeners {
		l.StateTransitioned(rc, previous, next)
	}
}

func (a *Aggregator) SubflowSpawned(rc *domain.RequestContext, s *domain.FlowSession) {
	for _, l := range a.listeners {
		l.SubflowSpawned(rc, s)
	}
}

func (a *Aggregator) SubflowEnded(rc *domain.RequestContext, s *domain.FlowSession) {
	for _, l := range a.listeners {
		l.SubflowEnded(rc, s)
	}
}

func (a *Aggregator) Paused(rc *domain.RequestContext, sel domain.ViewSelection) {
	for _, l := range a.listeners {
		l.Paused(rc, sel)
	}
}

func (a *Aggregator) Resumed(rc *domain.RequestContext, s *domain.FlowSession) {
	for _, l := range a.listeners {
		l.Resumed(rc, s)
	}
}

func (a *Aggregator) Ended(rc *domain.RequestContext, s *domain.FlowSession) {
	for _, l := range a.listeners {
		l.Ended(rc, s)
	}
}
