package cli

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/catalog"
	"github.com/aliskhannn/chorequest-bot/internal/config"
	"github.com/aliskhannn/chorequest-bot/internal/delivery/telegram"
	"github.com/aliskhannn/chorequest-bot/internal/infra/memory"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres/repository"
	"github.com/aliskhannn/chorequest-bot/internal/logger"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// stores groups the storage contracts of one backend.
type stores struct {
	progress     service.ProgressStore
	achievements service.AchievementStore
	users        service.UserDirectory
	chores       service.ChoreRepository
	praises      service.PraiseRepository
	ping         func(ctx context.Context) error
	close        func()
}

// app holds the services shared by every command.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	stores       *stores
	bot          *tgbotapi.BotAPI
	notifier     service.Notifier
	progression  *service.ProgressionService
	achievements *service.AchievementService
	digest       *service.DigestService
	praise       *service.PraiseService
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, log, nil
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, stores: st}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on exit")
		m := memory.New()
		return &stores{
			progress:     m,
			achievements: m,
			users:        m,
			chores:       m,
			praises:      m,
			ping:         func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	dsn, err := cfg.DB.DSN()
	if err != nil {
		return nil, err
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, dsn); err != nil {
			return nil, err
		}
		log.Info("database migrations applied")
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:        cfg.DB.MaxConnections,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return newPostgresStores(pool), nil
}

func newPostgresStores(pool *pgxpool.Pool) *stores {
	tr := postgres.NewTransactor(pool)
	return &stores{
		progress:     repository.NewProgressRepository(pool, tr),
		achievements: repository.NewAchievementRepository(pool, tr),
		users:        repository.NewUserRepository(pool),
		chores:       repository.NewChoreRepository(pool),
		praises:      repository.NewPraiseRepository(pool),
		ping:         pool.Ping,
		close:        pool.Close,
	}
}

func (a *app) wire() error {
	cfg := a.cfg

	progressionLoc, err := cfg.Progression.Location()
	if err != nil {
		return err
	}
	digestLoc, err := cfg.Digest.Location()
	if err != nil {
		return err
	}

	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		bot.Debug = cfg.Telegram.Debug
		a.bot = bot
		a.notifier = telegram.NewNotifier(bot, a.stores.users, digestLoc, a.logger)
		a.logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))
	} else {
		a.logger.Warn("TELEGRAM_API_TOKEN not set, notifications are only logged")
		a.notifier = telegram.NewLogNotifier(a.logger)
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	a.achievements = service.NewAchievementService(a.stores.achievements, cat, a.logger)
	a.progression = service.NewProgressionService(
		a.stores.progress,
		a.achievements,
		a.notifier,
		service.ProgressionConfig{
			Location:       progressionLoc,
			MaxAttempts:    cfg.Progression.MaxAttempts,
			InitialBackoff: cfg.Progression.InitialBackoff,
			MaxBackoff:     cfg.Progression.MaxBackoff,
		},
		a.logger,
	)
	a.digest = service.NewDigestService(
		a.stores.users,
		a.stores.chores,
		a.notifier,
		service.DigestConfig{
			Schedule:    cfg.Digest.Schedule,
			Location:    digestLoc,
			Limit:       cfg.Digest.Limit,
			Shown:       cfg.Digest.Shown,
			Concurrency: cfg.Digest.Concurrency,
		},
		a.logger,
	)
	a.praise = service.NewPraiseService(a.stores.users, a.stores.praises, a.notifier, a.logger)

	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func (a *app) Close() {
	a.stores.close()
	_ = a.logger.Sync()
}
