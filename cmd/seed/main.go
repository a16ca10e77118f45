// Command seed fills a development database with a structure, its members,
// a few events and issued tickets.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-events/internal/auth"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/cache"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

var categoryNames = []string{"Concert", "Theatre", "Festival", "Sport", "Conference", "Exhibition"}

func main() {
	reset := flag.Bool("reset", false, "drop and recreate every table before seeding")
	to := flag.Uint("to", 0, "migrate a postgres database to this version instead of the latest")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	log.SetLevel(cfg.LogLevel)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()

	switch {
	case *reset || cfg.Database.Dialect == "sqlite":
		log.Info("SEED", "Recreating tables")
		if err := database.ResetSchema(ctx, db); err != nil {
			log.Fatal("SEED", err.Error())
		}
	case *to > 0:
		log.Info("SEED", fmt.Sprintf("Migrating to version %d", *to))
		if err := migrations.NewRunner(db, migrations.DefaultOptions(), log).MigrateTo(*to); err != nil {
			log.Fatal("SEED", fmt.Sprintf("Migrations failed: %v", err))
		}
	default:
		if err := migrations.NewRunner(db, migrations.DefaultOptions(), log).RunMigrations(); err != nil {
			log.Fatal("SEED", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	if err := seed(ctx, db, log); err != nil {
		log.Fatal("SEED", err.Error())
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := cache.NewCategoryCache(client, cfg.Redis.CategoryCacheTTL).Invalidate(ctx); err != nil {
			log.Warn("SEED", fmt.Sprintf("Category cache not cleared: %v", err))
		}
		_ = client.Close()
	}

	if cfg.Auth.Mode == "hmac" && cfg.Auth.JWTSecret != "" {
		token, err := auth.IssueHMACToken(cfg.Auth.JWTSecret, "user-alice", "alice@example.com",
			[]string{models.RoleStructureAdministrator}, 24*time.Hour)
		if err == nil {
			log.Info("SEED", "Token for alice (structure administrator): "+token)
		}
	}
	log.Info("SEED", "✅ Done.")
}

func seed(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	now := time.Now().UTC().Truncate(time.Second)

	users := []models.User{
		{ID: "user-alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Martin", CreatedAt: now},
		{ID: "user-bob", Email: "bob@example.com", FirstName: "Bob", LastName: "Durand", CreatedAt: now},
		{ID: "user-carol", Email: "carol@example.com", FirstName: "Carol", LastName: "Petit", CreatedAt: now},
	}
	if _, err := db.NewInsert().Model(&users).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	friendships := []models.Friendship{
		{RequesterID: "user-bob", AddresseeID: "user-carol", Status: models.FriendshipAccepted, CreatedAt: now},
		{RequesterID: "user-alice", AddresseeID: "user-bob", Status: models.FriendshipPending, CreatedAt: now},
	}
	if _, err := db.NewInsert().Model(&friendships).Exec(ctx); err != nil {
		return fmt.Errorf("seed friendships: %w", err)
	}

	structure := models.Structure{Name: "Le Grand Hall", City: "Lyon", CreatedAt: now}
	if _, err := db.NewInsert().Model(&structure).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("seed structure: %w", err)
	}
	member := models.StructureMember{StructureID: structure.ID, UserID: "user-alice", Role: models.RoleStructureAdministrator}
	if _, err := db.NewInsert().Model(&member).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}
	log.LogDatabase("INSERT", "structures", fmt.Sprintf("structure %d owned by user-alice", structure.ID))

	categories := make([]models.EventCategory, 0, len(categoryNames))
	for _, name := range categoryNames {
		categories = append(categories, models.EventCategory{Name: name})
	}
	if _, err := db.NewInsert().Model(&categories).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	var stored []models.EventCategory
	if err := db.NewSelect().Model(&stored).Where("name IN (?)", bun.In([]string{"Concert", "Festival"})).Order("name ASC").Scan(ctx); err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	events := []models.Event{
		{
			StructureID:       structure.ID,
			Name:              "Summer Fest",
			ShortDescription:  "Three days of open air music.",
			FullDescription:   "Annual summer music festival with local and touring acts.",
			StartDate:         now.AddDate(0, 1, 0),
			EndDate:           now.AddDate(0, 1, 3),
			Address:           models.Address{Street: "1 quai Rambaud", City: "Lyon", ZipCode: "69002", Country: "France"},
			DisplayOnHomepage: true,
			IsFeaturedEvent:   true,
			Status:            models.EventStatusPublished,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			StructureID:      structure.ID,
			Name:             "Jazz Night",
			ShortDescription: "An evening with the house trio.",
			FullDescription:  "Standards and originals, doors open at 19:30.",
			StartDate:        now.AddDate(0, 0, 14),
			EndDate:          now.AddDate(0, 0, 14).Add(4 * time.Hour),
			Address:          models.Address{City: "Lyon", Country: "France"},
			Status:           models.EventStatusDraft,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
	for i := range events {
		if _, err := db.NewInsert().Model(&events[i]).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("seed event %q: %w", events[i].Name, err)
		}
		if len(stored) > i {
			link := models.EventCategoryLink{EventID: events[i].ID, CategoryID: stored[i].ID}
			if _, err := db.NewInsert().Model(&link).Exec(ctx); err != nil {
				return fmt.Errorf("seed category link: %w", err)
			}
		}
		tags := []models.EventTag{{EventID: events[i].ID, Tag: "live"}, {EventID: events[i].ID, Tag: "lyon"}}
		if _, err := db.NewInsert().Model(&tags).Exec(ctx); err != nil {
			return fmt.Errorf("seed tags: %w", err)
		}
	}

	tickets := []models.Ticket{
		{ID: uuid.NewString(), EventID: events[0].ID, UserID: "user-bob", ParticipantFirstName: "Bob", ParticipantLastName: "Durand",
			ParticipantEmail: "bob@example.com", AudienceZone: "Pit", Status: models.TicketStatusValid, IssuedAt: now},
		{ID: uuid.NewString(), EventID: events[0].ID, UserID: "user-carol", ParticipantFirstName: "Carol", ParticipantLastName: "Petit",
			ParticipantEmail: "carol@example.com", AudienceZone: "Balcony", Status: models.TicketStatusValid, IssuedAt: now},
		{ID: uuid.NewString(), EventID: events[0].ID, ParticipantFirstName: "Dan", ParticipantLastName: "Moreau",
			ParticipantEmail: "dan@example.com", Status: models.TicketStatusCancelled, IssuedAt: now},
	}
	if _, err := db.NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return fmt.Errorf("seed tickets: %w", err)
	}
	log.LogDatabase("INSERT", "tickets", fmt.Sprintf("%d tickets for event %d", len(tickets), events[0].ID))
	return nil
}
