package db_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/events/db"
	"ms-events/internal/models"
)

var base = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *db.DB {
	ctx := context.Background()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	require.NoError(t, bunDB.ResetModel(ctx, models.All()...))
	return &db.DB{Bun: bunDB}
}

func seedCategories(t *testing.T, d *db.DB, names ...string) []models.EventCategory {
	var out []models.EventCategory
	for _, n := range names {
		c := models.EventCategory{Name: n}
		_, err := d.Bun.NewInsert().Model(&c).Exec(context.Background())
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

type eventOpt func(*models.Event)

func newEvent(name, city string, offset time.Duration, opts ...eventOpt) *models.Event {
	e := &models.Event{
		StructureID:     1,
		Name:            name,
		FullDescription: name + " description",
		StartDate:       base.Add(offset),
		EndDate:         base.Add(offset + 2*time.Hour),
		Address:         models.Address{City: city},
		Status:          models.EventStatusPublished,
		CreatedAt:       base,
		UpdatedAt:       base,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func featured(e *models.Event) { e.IsFeaturedEvent = true }

func createEvent(t *testing.T, d *db.DB, e *models.Event, categoryIDs []int64, tags []string) *models.Event {
	require.NoError(t, d.CreateEvent(context.Background(), e, categoryIDs, tags))
	require.NotZero(t, e.ID)
	return e
}

func page(size int) models.PageRequest {
	return models.PageRequest{Page: 0, Size: size}
}

func names(events []models.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestCreateAndGetEventWithRelations(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	cats := seedCategories(t, d, "Theatre", "Concert")

	e := createEvent(t, d, newEvent("Jazz Night", "Paris", 0), []int64{cats[0].ID, cats[1].ID, cats[1].ID}, []string{"jazz", "Jazz", " live "})

	got, err := d.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", got.Name)
	assert.Equal(t, "Paris", got.Address.City)
	assert.True(t, got.StartDate.Equal(base))

	rel, err := d.LoadRelations(ctx, []int64{e.ID})
	require.NoError(t, err)
	require.Len(t, rel[e.ID].Categories, 2)
	assert.Equal(t, "Concert", rel[e.ID].Categories[0].Name)
	assert.Equal(t, []string{"jazz", "live"}, rel[e.ID].Tags)
	assert.Empty(t, rel[e.ID].Gallery)

	_, err = d.GetEventByID(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSearchEventsWithoutFiltersReturnsEverything(t *testing.T) {
	d := setupTestDB(t)
	createEvent(t, d, newEvent("B", "Lyon", 2*time.Hour), nil, nil)
	createEvent(t, d, newEvent("A", "Paris", time.Hour), nil, nil)
	createEvent(t, d, newEvent("C", "Paris", 0, func(e *models.Event) { e.Status = models.EventStatusDraft }), nil, nil)

	events, total, err := d.SearchEvents(context.Background(), models.EventSearchParams{}, page(20))

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"C", "A", "B"}, names(events))
}

func TestSearchEventsCityAndFeatured(t *testing.T) {
	d := setupTestDB(t)
	createEvent(t, d, newEvent("Paris featured", "Paris", 0, featured), nil, nil)
	createEvent(t, d, newEvent("Paris plain", "Paris", time.Hour), nil, nil)
	createEvent(t, d, newEvent("Lyon featured", "Lyon", 2*time.Hour, featured), nil, nil)

	yes := true
	events, total, err := d.SearchEvents(context.Background(), models.EventSearchParams{City: "paris", IsFeatured: &yes}, page(10))

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"Paris featured"}, names(events))
}

func TestSearchEventsFilters(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	cats := seedCategories(t, d, "Concert", "Sport")

	rock := createEvent(t, d, newEvent("Rock Fest", "Nantes", 0), []int64{cats[0].ID}, []string{"rock", "outdoor"})
	createEvent(t, d, newEvent("Jazz Club", "Nantes", 24*time.Hour), []int64{cats[0].ID}, []string{"jazz"})
	createEvent(t, d, newEvent("Marathon", "Nantes", 48*time.Hour, func(e *models.Event) {
		e.StructureID = 2
		e.ShortDescription = "A rock solid run"
	}), []int64{cats[1].ID}, []string{"outdoor"})

	t.Run("query matches name, description and tags", func(t *testing.T) {
		events, _, err := d.SearchEvents(ctx, models.EventSearchParams{Query: "ROCK"}, page(10))
		require.NoError(t, err)
		assert.Equal(t, []string{"Rock Fest", "Marathon"}, names(events))
	})

	t.Run("query wildcards match literally", func(t *testing.T) {
		_, total, err := d.SearchEvents(ctx, models.EventSearchParams{Query: "%"}, page(10))
		require.NoError(t, err)
		assert.Zero(t, total)

		_, total, err = d.SearchEvents(ctx, models.EventSearchParams{Query: "r_ck"}, page(10))
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("categories", func(t *testing.T) {
		events, _, err := d.SearchEvents(ctx, models.EventSearchParams{CategoryIDs: []int64{cats[1].ID}}, page(10))
		require.NoError(t, err)
		assert.Equal(t, []string{"Marathon"}, names(events))
	})

	t.Run("tags use AND semantics", func(t *testing.T) {
		events, _, err := d.SearchEvents(ctx, models.EventSearchParams{Tags: []string{"outdoor", "rock"}}, page(10))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, rock.ID, events[0].ID)
	})

	t.Run("date window", func(t *testing.T) {
		after := base.Add(time.Hour)
		before := base.Add(30 * time.Hour)
		events, total, err := d.SearchEvents(ctx, models.EventSearchParams{StartDateAfter: &after, StartDateBefore: &before}, page(10))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []string{"Jazz Club"}, names(events))
	})

	t.Run("structure and status", func(t *testing.T) {
		structureID := int64(2)
		status := models.EventStatusPublished
		events, _, err := d.SearchEvents(ctx, models.EventSearchParams{StructureID: &structureID, Status: &status}, page(10))
		require.NoError(t, err)
		assert.Equal(t, []string{"Marathon"}, names(events))

		draft := models.EventStatusDraft
		events, total, err := d.SearchEvents(ctx, models.EventSearchParams{Status: &draft}, page(10))
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, events)
	})
}

func TestSearchEventsSortAndPaging(t *testing.T) {
	d := setupTestDB(t)
	for i, n := range []string{"delta", "alpha", "charlie", "bravo", "echo"} {
		createEvent(t, d, newEvent(n, "Paris", time.Duration(i)*time.Hour), nil, nil)
	}

	req := models.PageRequest{Page: 1, Size: 2, Sort: []models.SortOrder{{Field: "name", Column: db.SortColumns["name"], Descending: true}}}
	events, total, err := d.SearchEvents(context.Background(), models.EventSearchParams{}, req)

	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"charlie", "bravo"}, names(events))

	req.Page = 5
	events, total, err = d.SearchEvents(context.Background(), models.EventSearchParams{}, req)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, events)
}

func TestUpdateEventReplacesSets(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	cats := seedCategories(t, d, "Concert", "Festival")
	e := createEvent(t, d, newEvent("Old", "Paris", 0), []int64{cats[0].ID}, []string{"a", "b"})

	e.Name = "New"
	newCats := []int64{cats[1].ID}
	require.NoError(t, d.UpdateEvent(ctx, e, &newCats, nil))

	got, err := d.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)

	rel, err := d.LoadRelations(ctx, []int64{e.ID})
	require.NoError(t, err)
	require.Len(t, rel[e.ID].Categories, 1)
	assert.Equal(t, "Festival", rel[e.ID].Categories[0].Name)
	assert.Equal(t, []string{"a", "b"}, rel[e.ID].Tags)

	empty := []string{}
	require.NoError(t, d.UpdateEvent(ctx, e, nil, &empty))
	rel, err = d.LoadRelations(ctx, []int64{e.ID})
	require.NoError(t, err)
	assert.Empty(t, rel[e.ID].Tags)
}

func TestUpdateStatusAndMainPhoto(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	e := createEvent(t, d, newEvent("Show", "Paris", 0), nil, nil)

	require.NoError(t, d.UpdateEventStatus(ctx, e.ID, models.EventStatusCancelled))
	require.NoError(t, d.UpdateMainPhoto(ctx, e.ID, "events/1/main/x.png"))

	got, err := d.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, got.Status)
	assert.Equal(t, "events/1/main/x.png", got.MainPhotoPath)

	assert.ErrorIs(t, d.UpdateEventStatus(ctx, 777, models.EventStatusDraft), models.ErrNotFound)
}

func TestUpdateEventKeepsStatusAndMainPhoto(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	e := createEvent(t, d, newEvent("Show", "Paris", 0), nil, nil)

	stale, err := d.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	require.NoError(t, d.UpdateEventStatus(ctx, e.ID, models.EventStatusCancelled))
	require.NoError(t, d.UpdateMainPhoto(ctx, e.ID, "events/1/main/new.jpg"))

	stale.Name = "Renamed"
	require.NoError(t, d.UpdateEvent(ctx, stale, nil, nil))
	assert.Equal(t, models.EventStatusCancelled, stale.Status)

	got, err := d.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.EventStatusCancelled, got.Status)
	assert.Equal(t, "events/1/main/new.jpg", got.MainPhotoPath)
}

func TestDeleteEventThenGetIsNotFound(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	cats := seedCategories(t, d, "Concert")
	e := createEvent(t, d, newEvent("Gone", "Paris", 0), []int64{cats[0].ID}, []string{"x"})
	require.NoError(t, d.AddGalleryImage(ctx, &models.GalleryImage{EventID: e.ID, Path: "events/1/gallery/a.png", CreatedAt: base}))

	require.NoError(t, d.DeleteEvent(ctx, e.ID))

	_, err := d.GetEventByID(ctx, e.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	links, err := d.Bun.NewSelect().Model((*models.EventCategoryLink)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, links)
	assert.ErrorIs(t, d.DeleteEvent(ctx, e.ID), models.ErrNotFound)
}

func TestGalleryImages(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	e := createEvent(t, d, newEvent("Expo", "Paris", 0), nil, nil)

	img := &models.GalleryImage{EventID: e.ID, Path: "events/1/gallery/a.png", CreatedAt: base}
	require.NoError(t, d.AddGalleryImage(ctx, img))

	found, err := d.FindGalleryImage(ctx, e.ID, "events/1/gallery/a.png")
	require.NoError(t, err)
	assert.Equal(t, img.ID, found.ID)

	_, err = d.FindGalleryImage(ctx, e.ID, "events/1/gallery/missing.png")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, d.DeleteGalleryImage(ctx, img.ID))
	rel, err := d.LoadRelations(ctx, []int64{e.ID})
	require.NoError(t, err)
	assert.Empty(t, rel[e.ID].Gallery)
}

func TestCategoriesAndStructures(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	cats := seedCategories(t, d, "Theatre", "Concert")

	missing, err := d.MissingCategoryIDs(ctx, []int64{cats[0].ID, 99, cats[1].ID, 100})
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 100}, missing)

	all, err := d.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Concert", all[0].Name)

	_, err = d.Bun.NewInsert().Model(&models.Structure{Name: "Olympia", CreatedAt: base}).Exec(ctx)
	require.NoError(t, err)
	exists, err := d.StructureExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = d.StructureExists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFriendsAttendingEvent(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	e := createEvent(t, d, newEvent("Gig", "Paris", 0), nil, nil)

	users := []models.User{
		{ID: "me", Email: "me@x", FirstName: "Me", LastName: "Self", CreatedAt: base},
		{ID: "ann", Email: "ann@x", FirstName: "Ann", LastName: "Bell", CreatedAt: base},
		{ID: "bob", Email: "bob@x", FirstName: "Bob", LastName: "Ames", CreatedAt: base},
		{ID: "cat", Email: "cat@x", FirstName: "Cat", LastName: "Cole", CreatedAt: base},
		{ID: "dan", Email: "dan@x", FirstName: "Dan", LastName: "Dorn", CreatedAt: base},
	}
	_, err := d.Bun.NewInsert().Model(&users).Exec(ctx)
	require.NoError(t, err)

	friendships := []models.Friendship{
		{RequesterID: "me", AddresseeID: "ann", Status: models.FriendshipAccepted, CreatedAt: base},
		{RequesterID: "bob", AddresseeID: "me", Status: models.FriendshipAccepted, CreatedAt: base},
		{RequesterID: "me", AddresseeID: "cat", Status: models.FriendshipPending, CreatedAt: base},
		{RequesterID: "me", AddresseeID: "dan", Status: models.FriendshipAccepted, CreatedAt: base},
	}
	_, err = d.Bun.NewInsert().Model(&friendships).Exec(ctx)
	require.NoError(t, err)

	ticket := func(id, user string, status models.TicketStatus) models.Ticket {
		return models.Ticket{ID: id, EventID: e.ID, UserID: user, ParticipantFirstName: user, ParticipantLastName: user, ParticipantEmail: user + "@x", Status: status, IssuedAt: base}
	}
	tickets := []models.Ticket{
		ticket("t1", "ann", models.TicketStatusValid),
		ticket("t2", "bob", models.TicketStatusUsed),
		ticket("t3", "cat", models.TicketStatusValid),
		ticket("t4", "dan", models.TicketStatusCancelled),
	}
	_, err = d.Bun.NewInsert().Model(&tickets).Exec(ctx)
	require.NoError(t, err)

	friends, err := d.FriendsAttendingEvent(ctx, e.ID, "me")
	require.NoError(t, err)
	var ids []string
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"bob", "ann"}, ids)
}
