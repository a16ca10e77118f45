package authz

import (
	"context"
	"fmt"

	"ms-events/internal/auth"
	"ms-events/internal/models"
)

// Decision is the outcome of a policy check. Reason explains a denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Roles allowed to create and manage events.
var AdminRoles = []string{models.RoleStructureAdministrator, models.RoleOrganizationService}

// Roles allowed to list and validate an event's tickets.
var TicketStaffRoles = []string{models.RoleStructureAdministrator, models.RoleOrganizationService, models.RoleReservationService}

// EventLocator resolves the structure owning an event. Unknown events yield models.ErrNotFound.
type EventLocator interface {
	StructureOfEvent(ctx context.Context, eventID int64) (int64, error)
	StructureExists(ctx context.Context, structureID int64) (bool, error)
}

// MembershipChecker tells whether a user belongs to a structure.
type MembershipChecker interface {
	IsMember(ctx context.Context, structureID int64, userID string) (bool, error)
}

type Policy interface {
	CanCreateInStructure(ctx context.Context, p *auth.Principal, structureID int64) (Decision, error)
	IsOwner(ctx context.Context, p *auth.Principal, eventID int64) (Decision, error)
	CanValidateEventTickets(ctx context.Context, p *auth.Principal, eventID int64) (Decision, error)
}

// RolePolicy combines token roles with structure membership.
type RolePolicy struct {
	Events  EventLocator
	Members MembershipChecker
}

func NewRolePolicy(events EventLocator, members MembershipChecker) *RolePolicy {
	return &RolePolicy{Events: events, Members: members}
}

// CanCreateInStructure reports an unknown structure as not found, but only to
// callers holding an admin role.
func (p *RolePolicy) CanCreateInStructure(ctx context.Context, principal *auth.Principal, structureID int64) (Decision, error) {
	if principal != nil && principal.HasAnyRole(AdminRoles...) {
		exists, err := p.Events.StructureExists(ctx, structureID)
		if err != nil {
			return Decision{}, fmt.Errorf("check structure %d: %w", structureID, err)
		}
		if !exists {
			return Decision{}, models.NewNotFound("STRUCTURE_NOT_FOUND", "structure %d not found", structureID)
		}
	}
	return p.memberWithRole(ctx, principal, structureID, AdminRoles)
}

func (p *RolePolicy) IsOwner(ctx context.Context, principal *auth.Principal, eventID int64) (Decision, error) {
	structureID, err := p.Events.StructureOfEvent(ctx, eventID)
	if err != nil {
		return Decision{}, err
	}
	return p.memberWithRole(ctx, principal, structureID, AdminRoles)
}

func (p *RolePolicy) CanValidateEventTickets(ctx context.Context, principal *auth.Principal, eventID int64) (Decision, error) {
	structureID, err := p.Events.StructureOfEvent(ctx, eventID)
	if err != nil {
		return Decision{}, err
	}
	return p.memberWithRole(ctx, principal, structureID, TicketStaffRoles)
}

func (p *RolePolicy) memberWithRole(ctx context.Context, principal *auth.Principal, structureID int64, roles []string) (Decision, error) {
	if principal == nil {
		return Deny("authentication required"), nil
	}
	if !principal.HasAnyRole(roles...) {
		return Deny("user %s lacks one of the roles %v", principal.UserID, roles), nil
	}
	member, err := p.Members.IsMember(ctx, structureID, principal.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("check membership of structure %d: %w", structureID, err)
	}
	if !member {
		return Deny("user %s is not a member of structure %d", principal.UserID, structureID), nil
	}
	return Allow(), nil
}
