package middleware_test

import (
	"context"

	"github.com/aretw0/flowstack/pkg/domain"
)

func attr(attrs []domain.Attribute, name string) (any, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

func newSnapshot(id string) *domain.Snapshot {
	return &domain.Snapshot{
		Version: domain.SnapshotVersion,
		ID:      id,
		Sessions: []domain.SessionRecord{
			{FlowID: "signup", StateID: "profile", Status: domain.StatusPaused},
		},
	}
}

var ctx = context.Background()
