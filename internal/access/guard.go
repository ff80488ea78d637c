// Package access decides whether an actor may read or write a resource.
//
// Authorize is a pure predicate: it performs no I/O and is evaluated before
// every agent and session operation.
package access

import (
	"errors"

	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

// Access is the kind of operation requested on a resource.
type Access int

const (
	Read Access = iota
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// Actor is the identity performing an operation. The zero value is an
// unauthenticated caller.
type Actor struct {
	UserID string
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a verified identity.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// ResourceKind distinguishes agents from sessions.
type ResourceKind int

const (
	KindAgent ResourceKind = iota
	KindSession
)

// Resource is the authorization-relevant projection of an agent or session.
type Resource struct {
	Kind     ResourceKind
	OwnerID  string
	Public   bool
	Featured bool
}

// AgentResource projects an agent.
func AgentResource(a domain.Agent) Resource {
	return Resource{
		Kind:     KindAgent,
		OwnerID:  a.Owner(),
		Public:   a.IsPublic,
		Featured: a.IsFeatured,
	}
}

// SessionResource projects a session. Sessions have no public mode.
func SessionResource(s domain.Session) Resource {
	return Resource{Kind: KindSession, OwnerID: s.OwnerID}
}

// Listed reports whether the resource is a public or featured agent.
func (r Resource) Listed() bool {
	return r.Kind == KindAgent && (r.Public || r.Featured)
}

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the permitting decision.
var Allow = Decision{Allowed: true}

// Deny builds a denying decision.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into an apperr error; it returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	return apperr.New(apperr.KindForbidden, "forbidden")
}

// Authorize evaluates the ownership and visibility rules in order; the first
// rule that denies wins.
func Authorize(actor Actor, res Resource, access Access) Decision {
	if !actor.Authenticated() && !res.Listed() {
		return Deny(ReasonUnauthenticated)
	}

	// A resource without an owner belongs to the system and matches nobody.
	owner := actor.Authenticated() && res.OwnerID != "" && actor.UserID == res.OwnerID

	switch {
	case access == Write && !owner:
		return Deny(ReasonForbidden)
	case access == Read && !owner && res.Kind == KindSession:
		return Deny(ReasonForbidden)
	case access == Read && !owner && res.Kind == KindAgent && !res.Listed():
		return Deny(ReasonForbidden)
	}
	return Allow
}

// Check is Authorize followed by Err.
func Check(actor Actor, res Resource, access Access) error {
	return Authorize(actor, res, access).Err()
}

// ConcealPrivate turns Forbidden into NotFound so callers cannot learn that
// a private resource exists. Other errors pass through unchanged.
func ConcealPrivate(err error, resource string) error {
	if errors.Is(err, apperr.ErrForbidden) {
		return apperr.NotFound(resource)
	}
	return err
}
