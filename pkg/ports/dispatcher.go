package ports

import "github.com/aretw0/flowstack/pkg/domain"

// ActionDispatcher defines how named units of work are executed.
// The engine asks for an action by name, and the host implements it.
// The returned string is dispatched as an event id.
type ActionDispatcher interface {
	Dispatch(rc *domain.RequestContext, name string) (string, error)
}
