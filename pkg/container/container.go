package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	loanService "library-backend/internal/domains/loan/service"
	reservationJob "library-backend/internal/domains/reservation/job"
	reservationService "library-backend/internal/domains/reservation/service"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/repository"
	"library-backend/pkg/cache"
	"library-backend/pkg/clock"
	repo "library-backend/pkg/repository"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa tất cả dependencies của worker.
//
// Thứ tự khởi tạo:
//  1. Config
//  2. Infrastructure (DB, Redis, asynq client)
//  3. Repositories + TxManager
//  4. Services
type Container struct {
	// Infrastructure
	Config      *config.Config
	Clock       clock.Clock
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient // nil khi Redis không kết nối được
	AsynqClient *asynq.Client

	// Data access
	Repos     *repository.Repositories
	TxManager *repository.TxManager

	// Services
	LoanService        loanService.LoanServiceInterface
	ReturnService      loanService.ReturnServiceInterface
	ReservationService reservationService.ServiceInterface
}

// NewContainer tạo và initialize toàn bộ dependency graph
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{
		Config: cfg,
		Clock:  clock.NewSystem(),
	}

	// ========================================
	// STEP 1: DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	// ========================================
	// STEP 2: REDIS (non-critical: code generator fallback sang random)
	// ========================================
	redisClient := infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Redis connection failed (non-critical)")
		redisClient.Close()
	} else {
		c.Redis = redisClient
	}

	c.AsynqClient = asynq.NewClient(RedisClientOpt(cfg.Redis))

	// ========================================
	// STEP 3: REPOSITORIES
	// ========================================
	if err := c.initRepositories(); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// ========================================
	// STEP 4: SERVICES
	// ========================================
	c.initServices()

	log.Info().Msg("🎉 DI Container initialized successfully")
	return c, nil
}

// RedisClientOpt: asynq dùng chung Redis với cache
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Container) initRepositories() error {
	repos, err := repository.NewRepositories(c.DB.Pool, repo.WithClock(c.Clock))
	if err != nil {
		return err
	}

	c.Repos = repos
	c.TxManager = repository.NewTxManager(c.DB.Pool, repos)
	return nil
}

func (c *Container) initServices() {
	circulation := c.Config.Circulation

	c.LoanService = loanService.NewLoanService(c.Repos, c.TxManager, c.Clock, circulation.DefaultLoanDays)
	c.ReturnService = loanService.NewReturnService(c.TxManager, c.Clock, circulation.FinePerDay)

	// tránh typed-nil: interface chỉ non-nil khi Redis thật sự có
	var counter cache.Counter
	if c.Redis != nil {
		counter = c.Redis
	}
	codes := reservationService.NewCodeGenerator(counter, circulation.ReservationCodePrefix, c.Clock)

	c.ReservationService = reservationService.NewService(
		c.Repos,
		c.TxManager,
		c.Clock,
		codes,
		circulation.ReservationTTL,
		reservationService.WithExpiryScheduler(reservationJob.NewExpiryScheduler(c.AsynqClient)),
	)
}

// Cleanup đóng các connection theo thứ tự ngược lại
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close asynq client")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close Redis")
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	log.Info().Msg("✅ Container cleanup completed")
}
