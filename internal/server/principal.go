package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

type principalContextKey struct{}

// withPrincipal resolves the acting subject from the identity headers the
// edge proxy sets after authentication. Missing headers leave an anonymous
// principal in place; the grant store decides what anonymous may do.
func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := types.Principal{
			ID:   strings.TrimSpace(r.Header.Get("X-Subject-ID")),
			Role: strings.ToLower(strings.TrimSpace(r.Header.Get("X-Subject-Role"))),
		}
		ctx := context.WithValue(r.Context(), principalContextKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentPrincipal(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(types.Principal)
	if !ok || p.SubjectID() == "" {
		return types.Principal{}, false
	}
	return p, true
}
