package services

import (
	"checkout-service/models"

	"github.com/google/uuid"
)

// AccessPolicy is the owner-or-admin capability check consulted before any
// order or payment is read or mutated. It lives in one place so individual
// handlers cannot drift in how they gate access.
type AccessPolicy interface {
	// Authorize reports whether requester may act on a resource owned by
	// resourceOwnerID. Passing models.RoleAdmin as requiredRole restricts
	// the operation to admins regardless of ownership.
	Authorize(requester models.Requester, resourceOwnerID uuid.UUID, requiredRole string) bool
}

// RoleAccessPolicy decides from the requester's role claim: admins may do
// anything, customers only touch their own resources.
type RoleAccessPolicy struct{}

func NewRoleAccessPolicy() *RoleAccessPolicy {
	return &RoleAccessPolicy{}
}

func (RoleAccessPolicy) Authorize(requester models.Requester, resourceOwnerID uuid.UUID, requiredRole string) bool {
	if requester.IsAdmin() {
		return true
	}
	if requiredRole == models.RoleAdmin {
		return false
	}
	return requester.UserID == resourceOwnerID
}
