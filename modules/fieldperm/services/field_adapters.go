package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
	"github.com/openhrx/fieldgate/pkg/httperr"
)

const errPatchFieldNotWritable = "patch contains a field the subject may not modify"

// WritableFields filters candidates down to the fields the subject may
// modify on the target, sorted and deduplicated. Form layers drop the rest
// before binding user input.
func (r *Resolver) WritableFields(ctx context.Context, target types.Target, subject types.Subject, candidates []string) ([]string, error) {
	fields := normalizeFieldKeys(candidates)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		allowed, err := r.Resolve(ctx, target, subject, field)
		if err != nil {
			return nil, err
		}
		if allowed {
			out = append(out, field)
		}
	}
	return out, nil
}

// ReadOnlyFields is the complement of WritableFields over the same
// candidates. Serializer layers mark these read-only on output.
func (r *Resolver) ReadOnlyFields(ctx context.Context, target types.Target, subject types.Subject, candidates []string) ([]string, error) {
	fields := normalizeFieldKeys(candidates)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		allowed, err := r.Resolve(ctx, target, subject, field)
		if err != nil {
			return nil, err
		}
		if !allowed {
			out = append(out, field)
		}
	}
	return out, nil
}

// ValidatePatch rejects a JSON patch that touches any field the subject may
// not modify. Field order of evaluation is deterministic.
func (r *Resolver) ValidatePatch(ctx context.Context, target types.Target, subject types.Subject, patch map[string]json.RawMessage) error {
	fields := make([]string, 0, len(patch))
	for key := range patch {
		field := strings.TrimSpace(key)
		if field == "" {
			return httperr.NewBadRequest(errPatchFieldNotWritable)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		allowed, err := r.Resolve(ctx, target, subject, field)
		if err != nil {
			return err
		}
		if !allowed {
			return httperr.NewBadRequest(errPatchFieldNotWritable)
		}
	}
	return nil
}

func normalizeFieldKeys(keys []string) []string {
	if len(keys) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
