package authz

import "strings"

const (
	RoleAnonymous = "anonymous"
	RoleEditor    = "editor"
	RoleAdmin     = "admin"
)

// SubjectFromID maps a principal identity to a casbin subject. Policy rows
// reference either user subjects directly or roles linked by g rules.
func SubjectFromID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "user:anonymous"
	}
	return "user:" + id
}

func SubjectFromRoleSlug(roleSlug string) string {
	roleSlug = strings.TrimSpace(strings.ToLower(roleSlug))
	if roleSlug == "" {
		roleSlug = RoleAnonymous
	}
	return "role:" + roleSlug
}
