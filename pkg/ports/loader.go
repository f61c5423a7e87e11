package ports

import (
	"context"

	"github.com/aretw0/flowstack/pkg/domain"
)

// FlowRegistry looks up registered flow definitions.
type FlowRegistry interface {
	// GetFlow returns the resolved definition of id.
	// It returns an error wrapping domain.ErrNoSuchFlow if the flow is not registered.
	GetFlow(id string) (*domain.FlowDefinition, error)

	// IDs returns the registered flow ids in sorted order.
	IDs() []string
}

// FlowLoader defines how flow definitions are retrieved from a source
// (files, embedded data, a remote repository). Definitions are returned
// unresolved; the registry resolves them on registration.
type FlowLoader interface {
	Load(ctx context.Context) ([]*domain.FlowDefinition, error)
}
