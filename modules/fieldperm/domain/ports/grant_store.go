package ports

import "context"

// GrantStore answers whether a subject holds a static grant label. The
// resolver treats it as a synchronous boolean oracle: no retries, no
// caching. Backends own their own latency and consistency policy.
type GrantStore interface {
	Holds(ctx context.Context, subjectID string, label string) (bool, error)
}
