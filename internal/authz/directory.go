package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

// DBDirectory answers ownership and membership questions from the local tables.
type DBDirectory struct {
	Bun *bun.DB
}

func NewDBDirectory(db *bun.DB) *DBDirectory {
	return &DBDirectory{Bun: db}
}

func (d *DBDirectory) StructureOfEvent(ctx context.Context, eventID int64) (int64, error) {
	var structureID int64
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("structure_id").
		Where("id = ?", eventID).
		Scan(ctx, &structureID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.NewNotFound("EVENT_NOT_FOUND", "event %d not found", eventID)
	}
	if err != nil {
		return 0, fmt.Errorf("find structure of event %d: %w", eventID, err)
	}
	return structureID, nil
}

func (d *DBDirectory) StructureExists(ctx context.Context, structureID int64) (bool, error) {
	return d.Bun.NewSelect().Model((*models.Structure)(nil)).Where("id = ?", structureID).Exists(ctx)
}

func (d *DBDirectory) IsMember(ctx context.Context, structureID int64, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.StructureMember)(nil)).
		Where("structure_id = ?", structureID).
		Where("user_id = ?", userID).
		Exists(ctx)
}
