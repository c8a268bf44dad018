package services

import (
	"context"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

// Delegate routes a generic "does subject hold permission" question to the
// target's own override, when the target carries one. It is stateless and
// never answers without an object: OpinionNone tells the caller to fall
// back to the default model-level lookup.
type Delegate struct{}

func (Delegate) Check(ctx context.Context, subject types.Subject, label string, target types.Target) (types.Opinion, error) {
	if target == nil {
		return types.OpinionNone, nil
	}
	permitter, ok := target.(types.InstancePermitter)
	if !ok {
		return types.OpinionNone, nil
	}
	allowed, err := permitter.HasPerm(ctx, subject, label)
	if err != nil {
		return types.OpinionNone, err
	}
	return types.OpinionFromBool(allowed), nil
}
