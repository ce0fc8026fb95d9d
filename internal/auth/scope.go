package auth

import "github.com/safetyops/permit-management/internal/user"

// Scope is the visibility filter derived once per request from the caller's
// role and identity, and threaded into every permit repository call. ADMIN
// sees everything; any other role is restricted to records it created.
type Scope struct {
	UserID int64
	All    bool
}

func ScopeFor(u *user.User) Scope {
	if u.IsAdmin() {
		return Scope{UserID: u.ID, All: true}
	}
	return Scope{UserID: u.ID}
}

// Allows reports whether a record owned by createdBy is visible under the scope.
func (s Scope) Allows(createdBy int64) bool {
	return s.All || s.UserID == createdBy
}
