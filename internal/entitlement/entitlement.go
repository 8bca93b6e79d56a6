// package entitlement derives the caller's access level from the session identity
package entitlement

import (
	"strconv"

	"github.com/desertthunder/scribe/internal/session"
)

// ProRole is the role granting premium features.
const ProRole = "pro"

// IsPro reports whether identity carries the [ProRole]. A nil identity is never Pro.
func IsPro(identity *session.Identity) bool {
	return identity.HasRole(ProRole)
}

// Access is the entitlement snapshot for one session update.
//
// It is a value: derive a new one with [Resolve] whenever the session changes instead of holding on to an old one.
type Access struct {
	Authenticated bool
	Pro           bool
	SubjectID     string
}

// Resolve derives the [Access] for s. Loading or anonymous sessions resolve to the zero value.
func Resolve(s session.Session) Access {
	if s.IsLoading || !s.IsAuthenticated || s.Identity == nil {
		return Access{}
	}
	return Access{
		Authenticated: true,
		Pro:           IsPro(s.Identity),
		SubjectID:     s.Identity.SubjectID,
	}
}

// Header is the entitlement flag value sent to the backend.
func (a Access) Header() string {
	return strconv.FormatBool(a.Pro)
}

// Plan is the user-facing plan name.
func (a Access) Plan() string {
	if a.Pro {
		return "Pro Plan"
	}
	return "Free Plan"
}
