// Package authz decides whether an actor may perform an action on a
// resource. Decisions are pure functions of their inputs; rules compose
// with All, Any and Not.
package authz

import (
	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
)

// Action is an operation requested on a resource
type Action string

const (
	ActionList       Action = "list"
	ActionRetrieve   Action = "retrieve"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionSoftDelete Action = "soft_delete"
	ActionRestore    Action = "restore"
)

// IsRead reports whether the action leaves state unchanged
func (a Action) IsRead() bool {
	return a == ActionList || a == ActionRetrieve
}

// Resource types
const (
	ResourceCategory = "category"
	ResourceProduct  = "product"
	ResourceTask     = "task"
)

// Actor is the authenticated caller. The zero value is anonymous.
type Actor struct {
	UserID  uuid.UUID
	IsStaff bool
}

// IsAuthenticated reports whether the actor carries an identity
func (a Actor) IsAuthenticated() bool {
	return a.UserID != uuid.Nil
}

// Resource identifies what an action targets. OwnerID is nil for
// collections and for resources that are not persisted yet.
type Resource struct {
	Type    string
	OwnerID *uuid.UUID
}

// Collection returns the resource for collection-level actions
func Collection(resourceType string) Resource {
	return Resource{Type: resourceType}
}

// Owned returns a persisted resource owned by ownerID
func Owned(resourceType string, ownerID uuid.UUID) Resource {
	return Resource{Type: resourceType, OwnerID: &ownerID}
}

// Decision is the outcome of Decide
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Rule is a predicate over a request
type Rule func(actor Actor, action Action, resource Resource) bool

// IsAuthenticated allows identified actors
func IsAuthenticated(actor Actor, _ Action, _ Resource) bool {
	return actor.IsAuthenticated()
}

// IsStaff allows administrators
func IsStaff(actor Actor, _ Action, _ Resource) bool {
	return actor.IsStaff
}

// IsReadAction allows list and retrieve
func IsReadAction(_ Actor, action Action, _ Resource) bool {
	return action.IsRead()
}

// IsOwner allows the owner of a persisted resource
func IsOwner(actor Actor, _ Action, resource Resource) bool {
	return resource.OwnerID != nil && *resource.OwnerID == actor.UserID
}

// ActionIn allows any of the given actions
func ActionIn(actions ...Action) Rule {
	return func(_ Actor, action Action, _ Resource) bool {
		for _, a := range actions {
			if a == action {
				return true
			}
		}
		return false
	}
}

// All is true when every rule holds
func All(rules ...Rule) Rule {
	return func(actor Actor, action Action, resource Resource) bool {
		for _, rule := range rules {
			if !rule(actor, action, resource) {
				return false
			}
		}
		return true
	}
}

// Any is true when at least one rule holds
func Any(rules ...Rule) Rule {
	return func(actor Actor, action Action, resource Resource) bool {
		for _, rule := range rules {
			if rule(actor, action, resource) {
				return true
			}
		}
		return false
	}
}

// Not negates a rule
func Not(rule Rule) Rule {
	return func(actor Actor, action Action, resource Resource) bool {
		return !rule(actor, action, resource)
	}
}

// StaffOrReadOnly guards catalog resources: everyone reads, staff writes
var StaffOrReadOnly = All(IsAuthenticated, Any(IsStaff, IsReadAction))

// OwnerOrStaff guards tasks. Creation and listing are open to every
// authenticated actor (lists are scoped separately); retrieving and
// writing need ownership; restore is staff only.
var OwnerOrStaff = All(
	IsAuthenticated,
	Any(
		IsStaff,
		All(
			Not(ActionIn(ActionRestore)),
			Any(ActionIn(ActionCreate, ActionList), IsOwner),
		),
	),
)

var policies = map[string]Rule{
	ResourceCategory: StaffOrReadOnly,
	ResourceProduct:  StaffOrReadOnly,
	ResourceTask:     OwnerOrStaff,
}

// Decide evaluates the policy for the resource type. Unknown types are denied.
func Decide(actor Actor, action Action, resource Resource) Decision {
	rule, ok := policies[resource.Type]
	if !ok {
		return Deny
	}
	if rule(actor, action, resource) {
		return Allow
	}
	return Deny
}

// Authorize wraps Decide into an error: ErrUnauthorized for anonymous
// actors, ErrForbidden for authenticated actors lacking permission.
func Authorize(actor Actor, action Action, resource Resource) error {
	if !actor.IsAuthenticated() {
		return shared.ErrUnauthorized
	}
	if Decide(actor, action, resource) == Deny {
		return shared.ErrForbidden
	}
	return nil
}

// OwnerScope returns the owner every list result must be restricted to,
// or nil when the actor sees all rows.
func OwnerScope(actor Actor) *uuid.UUID {
	if actor.IsStaff {
		return nil
	}
	id := actor.UserID
	return &id
}
