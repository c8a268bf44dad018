package services

import (
	"context"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/ports"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

// ChainBackend composes the object delegate with a default model-level
// grant store: a definite delegate opinion is final, no-opinion falls
// through to the store.
type ChainBackend struct {
	delegate Delegate
	fallback ports.GrantStore
}

func NewChainBackend(fallback ports.GrantStore) *ChainBackend {
	return &ChainBackend{fallback: fallback}
}

func (b *ChainBackend) Check(ctx context.Context, subject types.Subject, label string, target types.Target) (bool, error) {
	opinion, err := b.delegate.Check(ctx, subject, label, target)
	if err != nil {
		return false, err
	}
	if allowed, ok := opinion.Definite(); ok {
		return allowed, nil
	}
	if b.fallback == nil {
		return false, nil
	}
	return b.fallback.Holds(ctx, subject.SubjectID(), label)
}
