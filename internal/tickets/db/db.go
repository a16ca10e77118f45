package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/database"
	"ms-events/internal/models"
)

// SortColumns maps the public sort fields of the ticket listing to columns.
var SortColumns = map[string]string{
	"issuedAt": "t.issued_at",
	"lastName": "t.participant_last_name",
	"status":   "t.status",
}

var DefaultSort = []models.SortOrder{
	{Field: "issuedAt", Column: "t.issued_at"},
}

type DB struct {
	Bun *bun.DB
}

func ticketNotFound(id string) error {
	return models.NewNotFound("TICKET_NOT_FOUND", "ticket %s not found", id)
}

func (d *DB) EventExists(ctx context.Context, eventID int64) (bool, error) {
	exists, err := d.Bun.NewSelect().Model((*models.Event)(nil)).Where("e.id = ?", eventID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check event %d: %w", eventID, err)
	}
	return exists, nil
}

// ListEventTickets returns one page of the event's tickets, with their event
// joined, and the total match count.
func (d *DB) ListEventTickets(ctx context.Context, eventID int64, filter models.TicketFilter, page models.PageRequest) ([]models.Ticket, int, error) {
	var tickets []models.Ticket
	q := d.Bun.NewSelect().
		Model(&tickets).
		Relation("Event").
		Where("t.event_id = ?", eventID)

	if filter.Status != nil {
		q = q.Where("t.status = ?", *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := database.ContainsPattern(search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(t.participant_first_name) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(t.participant_last_name) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(t.participant_email) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(t.id) LIKE ? ESCAPE '\\'", pattern)
		})
	}

	sort := page.Sort
	if len(sort) == 0 {
		sort = DefaultSort
	}
	for _, o := range sort {
		dir := " ASC"
		if o.Descending {
			dir = " DESC"
		}
		q = q.OrderExpr(o.Column + dir)
	}
	q = q.OrderExpr("t.id ASC")

	total, err := q.Limit(page.Size).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets of event %d: %w", eventID, err)
	}
	return tickets, total, nil
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Relation("Event").
		Where("t.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticketNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return &ticket, nil
}

// MarkTicketUsed flips a VALID ticket to USED. It reports false when the
// ticket was no longer VALID, so concurrent validations succeed at most once.
func (d *DB) MarkTicketUsed(ctx context.Context, id, validatedBy string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketStatusUsed).
		Set("validated_at = ?", at).
		Set("validated_by = ?", validatedBy).
		Where("id = ?", id).
		Where("status = ?", models.TicketStatusValid).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark ticket %s used: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark ticket %s used: %w", id, err)
	}
	return n == 1, nil
}

// CreateTicket inserts ticket unless one with the same ID exists. It reports
// whether a row was inserted.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) (bool, error) {
	res, err := d.Bun.NewInsert().
		Model(ticket).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	return n == 1, nil
}
