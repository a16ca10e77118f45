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

// SortColumns maps the public sort fields of the event listing to columns.
var SortColumns = map[string]string{
	"startDate": "e.start_date",
	"endDate":   "e.end_date",
	"name":      "e.name",
	"createdAt": "e.created_at",
	"id":        "e.id",
}

// DefaultSort orders listings by start date, then ID.
var DefaultSort = []models.SortOrder{
	{Field: "startDate", Column: "e.start_date"},
	{Field: "id", Column: "e.id"},
}

type DB struct {
	Bun *bun.DB
}

func eventNotFound(id int64) error {
	return models.NewNotFound("EVENT_NOT_FOUND", "event %d not found", id)
}

// CreateEvent inserts the event with its category links and tags in one transaction.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event, categoryIDs []int64, tags []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := insertCategoryLinks(ctx, tx, event.ID, categoryIDs); err != nil {
			return err
		}
		return insertTags(ctx, tx, event.ID, tags)
	})
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("e.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eventNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &event, nil
}

// editableColumns are the event columns a partial update may write. Status and
// main photo have their own single-column updates.
var editableColumns = []string{
	"name", "short_description", "full_description", "start_date", "end_date",
	"address_street", "address_city", "address_zip_code", "address_country",
	"is_free_event", "display_on_homepage", "is_featured_event", "updated_at",
}

// UpdateEvent saves the editable columns of event and reloads it. Non-nil
// categoryIDs or tags replace the previous sets.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event, categoryIDs *[]int64, tags *[]string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(event).Column(editableColumns...).WherePK().Exec(ctx)
		if err != nil {
			return fmt.Errorf("update event %d: %w", event.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return eventNotFound(event.ID)
		}
		if err := tx.NewSelect().Model(event).WherePK().Scan(ctx); err != nil {
			return fmt.Errorf("reload event %d: %w", event.ID, err)
		}

		if categoryIDs != nil {
			if _, err := tx.NewDelete().Model((*models.EventCategoryLink)(nil)).Where("event_id = ?", event.ID).Exec(ctx); err != nil {
				return fmt.Errorf("clear categories of event %d: %w", event.ID, err)
			}
			if err := insertCategoryLinks(ctx, tx, event.ID, *categoryIDs); err != nil {
				return err
			}
		}
		if tags != nil {
			if _, err := tx.NewDelete().Model((*models.EventTag)(nil)).Where("event_id = ?", event.ID).Exec(ctx); err != nil {
				return fmt.Errorf("clear tags of event %d: %w", event.ID, err)
			}
			if err := insertTags(ctx, tx, event.ID, *tags); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error {
	return d.updateColumn(ctx, id, "status", status)
}

func (d *DB) UpdateMainPhoto(ctx context.Context, id int64, path string) error {
	return d.updateColumn(ctx, id, "main_photo_path", path)
}

func (d *DB) updateColumn(ctx context.Context, id int64, column string, value interface{}) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update %s of event %d: %w", column, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(id)
	}
	return nil
}

// DeleteEvent removes the event and every row hanging off it.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*models.EventCategoryLink)(nil),
			(*models.EventTag)(nil),
			(*models.GalleryImage)(nil),
			(*models.Ticket)(nil),
		} {
			if _, err := tx.NewDelete().Model(model).Where("event_id = ?", id).Exec(ctx); err != nil {
				return fmt.Errorf("delete %T of event %d: %w", model, id, err)
			}
		}

		res, err := tx.NewDelete().Model((*models.Event)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete event %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return eventNotFound(id)
		}
		return nil
	})
}

// SearchEvents returns one page of events matching params and the total match count.
func (d *DB) SearchEvents(ctx context.Context, params models.EventSearchParams, page models.PageRequest) ([]models.Event, int, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)

	if query := strings.TrimSpace(params.Query); query != "" {
		pattern := database.ContainsPattern(query)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(e.name) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(e.short_description) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(e.full_description) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("EXISTS (SELECT 1 FROM event_tags AS qt WHERE qt.event_id = e.id AND LOWER(qt.tag) LIKE ? ESCAPE '\\')", pattern)
		})
	}
	if len(params.CategoryIDs) > 0 {
		q = q.Where("EXISTS (SELECT 1 FROM event_category_links AS ecl WHERE ecl.event_id = e.id AND ecl.category_id IN (?))", bun.In(params.CategoryIDs))
	}
	if params.StartDateAfter != nil {
		q = q.Where("e.start_date >= ?", params.StartDateAfter.UTC())
	}
	if params.StartDateBefore != nil {
		q = q.Where("e.start_date <= ?", params.StartDateBefore.UTC())
	}
	if params.Status != nil {
		q = q.Where("e.status = ?", *params.Status)
	}
	if params.DisplayOnHomepage != nil {
		q = q.Where("e.display_on_homepage = ?", *params.DisplayOnHomepage)
	}
	if params.IsFeatured != nil {
		q = q.Where("e.is_featured_event = ?", *params.IsFeatured)
	}
	if params.StructureID != nil {
		q = q.Where("e.structure_id = ?", *params.StructureID)
	}
	if city := strings.TrimSpace(params.City); city != "" {
		q = q.Where("LOWER(e.address_city) = ?", strings.ToLower(city))
	}
	for _, tag := range params.Tags {
		q = q.Where("EXISTS (SELECT 1 FROM event_tags AS et WHERE et.event_id = e.id AND LOWER(et.tag) = ?)", strings.ToLower(tag))
	}

	q = applySort(q, page.Sort)

	total, err := q.Limit(page.Size).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	return events, total, nil
}

// applySort orders by whitelisted columns and always ends with e.id for stable pages.
func applySort(q *bun.SelectQuery, orders []models.SortOrder) *bun.SelectQuery {
	if len(orders) == 0 {
		orders = DefaultSort
	}
	hasID := false
	for _, o := range orders {
		dir := " ASC"
		if o.Descending {
			dir = " DESC"
		}
		q = q.OrderExpr(o.Column + dir)
		if o.Column == "e.id" {
			hasID = true
		}
	}
	if !hasID {
		q = q.OrderExpr("e.id ASC")
	}
	return q
}

type eventCategoryRow struct {
	EventID int64  `bun:"event_id"`
	ID      int64  `bun:"id"`
	Name    string `bun:"name"`
}

// LoadRelations fetches categories, tags and gallery images for the given events.
func (d *DB) LoadRelations(ctx context.Context, eventIDs []int64) (map[int64]*models.EventRelations, error) {
	out := make(map[int64]*models.EventRelations, len(eventIDs))
	for _, id := range eventIDs {
		out[id] = &models.EventRelations{Categories: []models.EventCategory{}, Tags: []string{}, Gallery: []models.GalleryImage{}}
	}
	if len(eventIDs) == 0 {
		return out, nil
	}

	var categories []eventCategoryRow
	err := d.Bun.NewSelect().
		TableExpr("event_category_links AS ecl").
		Join("JOIN event_categories AS c ON c.id = ecl.category_id").
		ColumnExpr("ecl.event_id, c.id, c.name").
		Where("ecl.event_id IN (?)", bun.In(eventIDs)).
		OrderExpr("c.name ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, fmt.Errorf("load event categories: %w", err)
	}
	for _, c := range categories {
		out[c.EventID].Categories = append(out[c.EventID].Categories, models.EventCategory{ID: c.ID, Name: c.Name})
	}

	var tags []models.EventTag
	if err := d.Bun.NewSelect().Model(&tags).Where("event_id IN (?)", bun.In(eventIDs)).Order("tag").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load event tags: %w", err)
	}
	for _, t := range tags {
		out[t.EventID].Tags = append(out[t.EventID].Tags, t.Tag)
	}

	var gallery []models.GalleryImage
	if err := d.Bun.NewSelect().Model(&gallery).Where("event_id IN (?)", bun.In(eventIDs)).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load event gallery: %w", err)
	}
	for _, g := range gallery {
		out[g.EventID].Gallery = append(out[g.EventID].Gallery, g)
	}
	return out, nil
}

// MissingCategoryIDs returns the IDs among ids that have no category row.
func (d *DB) MissingCategoryIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := d.Bun.NewSelect().
		Model((*models.EventCategory)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, fmt.Errorf("check categories: %w", err)
	}
	known := make(map[int64]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (d *DB) StructureExists(ctx context.Context, id int64) (bool, error) {
	exists, err := d.Bun.NewSelect().Model((*models.Structure)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check structure %d: %w", id, err)
	}
	return exists, nil
}

func (d *DB) GetAllCategories(ctx context.Context) ([]models.EventCategory, error) {
	categories := []models.EventCategory{}
	if err := d.Bun.NewSelect().Model(&categories).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (d *DB) AddGalleryImage(ctx context.Context, image *models.GalleryImage) error {
	if _, err := d.Bun.NewInsert().Model(image).Exec(ctx); err != nil {
		return fmt.Errorf("insert gallery image: %w", err)
	}
	return nil
}

func (d *DB) FindGalleryImage(ctx context.Context, eventID int64, path string) (*models.GalleryImage, error) {
	var image models.GalleryImage
	err := d.Bun.NewSelect().Model(&image).Where("event_id = ?", eventID).Where("path = ?", path).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("IMAGE_NOT_FOUND", "image %s not found for event %d", path, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("find gallery image: %w", err)
	}
	return &image, nil
}

func (d *DB) DeleteGalleryImage(ctx context.Context, id int64) error {
	if _, err := d.Bun.NewDelete().Model((*models.GalleryImage)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete gallery image %d: %w", id, err)
	}
	return nil
}

// FriendsAttendingEvent lists accepted friends of userID holding a non-cancelled ticket for the event.
func (d *DB) FriendsAttendingEvent(ctx context.Context, eventID int64, userID string) ([]models.User, error) {
	users := []models.User{}
	err := d.Bun.NewSelect().
		Model(&users).
		Where(`EXISTS (SELECT 1 FROM friendships AS f WHERE f.status = ?
			AND ((f.requester_id = ? AND f.addressee_id = u.id) OR (f.addressee_id = ? AND f.requester_id = u.id)))`,
			models.FriendshipAccepted, userID, userID).
		Where("EXISTS (SELECT 1 FROM tickets AS t WHERE t.event_id = ? AND t.user_id = u.id AND t.status <> ?)",
			eventID, models.TicketStatusCancelled).
		OrderExpr("u.last_name ASC, u.first_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("friends attending event %d: %w", eventID, err)
	}
	return users, nil
}

func insertCategoryLinks(ctx context.Context, tx bun.Tx, eventID int64, categoryIDs []int64) error {
	seen := map[int64]bool{}
	var links []models.EventCategoryLink
	for _, id := range categoryIDs {
		if !seen[id] {
			seen[id] = true
			links = append(links, models.EventCategoryLink{EventID: eventID, CategoryID: id})
		}
	}
	if len(links) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("insert categories of event %d: %w", eventID, err)
	}
	return nil
}

func insertTags(ctx context.Context, tx bun.Tx, eventID int64, tags []string) error {
	seen := map[string]bool{}
	var rows []models.EventTag
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, models.EventTag{EventID: eventID, Tag: tag})
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert tags of event %d: %w", eventID, err)
	}
	return nil
}
