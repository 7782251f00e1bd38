package models

import "github.com/google/uuid"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Requester is the authenticated caller, extracted from the bearer token by
// the auth middleware.
type Requester struct {
	UserID uuid.UUID
	Role   string
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}
