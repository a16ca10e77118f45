package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role names carried in access tokens.
const (
	RoleSpectator              = "SPECTATOR"
	RoleStructureAdministrator = "STRUCTURE_ADMINISTRATOR"
	RoleReservationService     = "RESERVATION_SERVICE"
	RoleOrganizationService    = "ORGANIZATION_SERVICE"
)

type Structure struct {
	bun.BaseModel `bun:"table:structures"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	City      string    `bun:"city"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// StructureMember grants a user a role inside one structure.
type StructureMember struct {
	bun.BaseModel `bun:"table:structure_members"`

	StructureID int64  `bun:"structure_id,pk"`
	UserID      string `bun:"user_id,pk"`
	Role        string `bun:"role,notnull"`
}
