package models

import "github.com/google/uuid"

// Actor is the authenticated caller of a request. It is built once per request
// by the auth middleware and passed explicitly into every core operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	IP     string
}

// Is reports whether the actor holds the given role.
func (a Actor) Is(role Role) bool { return a.Role == role }
