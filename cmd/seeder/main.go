package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/config"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/events"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/storage"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/usecase"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	count := flag.Int("count", 25, "Number of fake leads to insert")
	ownerID := flag.String("owner", "", "Owner user id (random when empty)")
	email := flag.String("email", "demo@example.com", "Email carried by the dev token")
	role := flag.String("role", string(identity.RoleUser), "Role carried by the dev token (user, admin)")
	concurrency := flag.Int("concurrency", 4, "Number of concurrent inserts")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev token")
	tokenOnly := flag.Bool("token-only", false, "Only print a dev token, insert nothing")
	seed := flag.Int64("seed", 0, "gofakeit seed (0 picks a random one)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Buyer lead seeder\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inserts fake buyer leads through the lead service and prints a dev JWT.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	actor := identity.Identity{UserID: *ownerID, Email: *email, Role: identity.Role(*role)}
	if actor.UserID == "" {
		actor.UserID = uuid.NewString()
	}
	if !actor.Role.Valid() {
		logger.Log.Fatal("Unknown role", zap.String("role", *role))
	}

	tokens, err := identity.NewTokenIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Log.Fatal("Failed to initialize token issuer", zap.Error(err))
	}
	token, err := tokens.Issue(actor, *tokenTTL)
	if err != nil {
		logger.Log.Fatal("Failed to issue dev token", zap.Error(err))
	}

	if !*tokenOnly {
		if *seed != 0 {
			gofakeit.Seed(*seed)
		}
		inserted, failed := seedLeads(cfg, actor, *count, *concurrency)
		logger.Log.Info("Seeding finished",
			zap.String("owner_id", actor.UserID),
			zap.Int64("inserted", inserted),
			zap.Int64("failed", failed),
		)
	}

	fmt.Printf("\nowner:  %s\nrole:   %s\ntoken:  %s\n\nAuthorization: Bearer %s\n", actor.UserID, actor.Role, token, token)
}

// seedLeads creates count random leads owned by actor using an ants pool.
func seedLeads(cfg *config.Config, actor identity.Identity, count, concurrency int) (int64, int64) {
	if cfg.Database.PostgresDSN == "" {
		logger.Log.Fatal("postgres DSN is required to seed leads")
	}
	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			logger.Log.Warn("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	service := usecase.NewLeadService(
		storage.NewLeadRepoAdapter(repo),
		storage.NewHistoryRepoAdapter(repo),
		nil,
		events.NoopPublisher{},
		usecase.OptionsFromConfig(cfg),
	)

	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		inserted, failed atomic.Int64
		wg               sync.WaitGroup
	)
	ctx := context.Background()
	pool, err := ants.NewPoolWithFunc(concurrency, func(arg interface{}) {
		defer wg.Done()
		defer utils.RecoverWithLog(ctx, "seed lead")
		in := arg.(model.LeadInput)
		lead, err := service.CreateLead(ctx, actor, in)
		if err != nil {
			failed.Add(1)
			logger.Log.Warn("Failed to insert fake lead", zap.Error(err))
			return
		}
		inserted.Add(1)
		logger.Log.Debug("Inserted fake lead", zap.String("lead_id", lead.ID))
	})
	if err != nil {
		logger.Log.Fatal("Failed to create seeding pool", zap.Error(err))
	}
	defer pool.Release()

	for i := 0; i < count; i++ {
		wg.Add(1)
		if err := pool.Invoke(model.NewLeadInput()); err != nil {
			wg.Done()
			failed.Add(1)
			logger.Log.Warn("Failed to submit fake lead", zap.Error(err))
		}
	}
	wg.Wait()
	return inserted.Load(), failed.Load()
}
