package services

import (
	"context"
	"testing"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

func TestChainBackend_DelegateOpinionStopsChain(t *testing.T) {
	// Fallback would allow, but the object override's deny is final.
	grants := fakeGrants{held: map[string]bool{"u1|can_change_post_name": true}}
	chain := NewChainBackend(grants)

	allowed, err := chain.Check(context.Background(), types.Principal{ID: "u1"}, "can_change_post_name", &permittingPost{answer: false})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if allowed {
		t.Fatal("expected override deny to stop the chain")
	}

	allowed, err = chain.Check(context.Background(), types.Principal{ID: "u2"}, "can_change_post_name", &permittingPost{answer: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !allowed {
		t.Fatal("expected override allow to stop the chain")
	}
}

func TestChainBackend_NoOpinionFallsThroughToGrants(t *testing.T) {
	grants := fakeGrants{held: map[string]bool{"u1|can_change_post_name": true}}
	chain := NewChainBackend(grants)

	allowed, err := chain.Check(context.Background(), types.Principal{ID: "u1"}, "can_change_post_name", post{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !allowed {
		t.Fatal("expected fallback grant")
	}

	allowed, err = chain.Check(context.Background(), types.Principal{ID: "u1"}, "can_change_post_name", nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !allowed {
		t.Fatal("expected fallback grant for nil target")
	}

	allowed, err = chain.Check(context.Background(), types.Principal{ID: "u2"}, "can_change_post_name", nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if allowed {
		t.Fatal("expected fallback deny")
	}
}

func TestChainBackend_NilFallbackDenies(t *testing.T) {
	chain := NewChainBackend(nil)
	allowed, err := chain.Check(context.Background(), types.Principal{ID: "u1"}, "can_change_post_name", post{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if allowed {
		t.Fatal("expected deny without a fallback store")
	}
}
