package db

import (
	"context"
	"fmt"

	"ms-events/internal/models"
)

type statusCount struct {
	Status models.TicketStatus `bun:"status"`
	Count  int                 `bun:"count"`
}

// CountByStatus returns how many of the event's tickets are in each status.
// Statuses without tickets are absent from the map.
func (d *DB) CountByStatus(ctx context.Context, eventID int64) (map[models.TicketStatus]int, error) {
	var rows []statusCount
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("t.status").
		ColumnExpr("COUNT(*) AS count").
		Where("t.event_id = ?", eventID).
		GroupExpr("t.status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count tickets of event %d: %w", eventID, err)
	}

	counts := make(map[models.TicketStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
