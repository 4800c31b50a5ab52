// ABOUTME: Pure mutation-authorization predicate for owned resources
// ABOUTME: Owners may always mutate; admins may mutate public resources only

package authz

// Reason codes returned on denial. The two codes map to different
// human-readable messages so a caller can tell a private-resource denial
// apart from a public-resource one.
const (
	ReasonPrivateNotOwner       = "private-not-owner"
	ReasonPublicNotAdminOrOwner = "public-not-admin-or-owner"
)

// Actor is the minimal identity view the predicate needs.
type Actor struct {
	ID      string
	IsAdmin bool
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string // denial reason code, empty when allowed
}

// CanMutate reports whether actor may update or delete a resource owned by
// ownerID with the given visibility. A private resource is mutable only by
// its owner, regardless of admin status.
func CanMutate(actor Actor, ownerID string, isPublic bool) bool {
	return Decide(actor, ownerID, isPublic).Allowed
}

// Decide evaluates the mutation predicate and, on denial, reports which
// rule failed.
func Decide(actor Actor, ownerID string, isPublic bool) Decision {
	if actor.ID == ownerID {
		return Decision{Allowed: true}
	}
	if actor.IsAdmin && isPublic {
		return Decision{Allowed: true}
	}
	if isPublic {
		return Decision{Reason: ReasonPublicNotAdminOrOwner}
	}
	return Decision{Reason: ReasonPrivateNotOwner}
}

// DenialMessage returns the user-facing message for a denial reason code.
func DenialMessage(reason string) string {
	switch reason {
	case ReasonPrivateNotOwner:
		return "this resource is private and can only be modified by its owner"
	case ReasonPublicNotAdminOrOwner:
		return "only the owner or an administrator can modify this resource"
	default:
		return "not authorized to modify this resource"
	}
}
