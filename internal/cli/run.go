package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/chorequest-bot/internal/config"
	"github.com/aliskhannn/chorequest-bot/internal/delivery/api"
	"github.com/aliskhannn/chorequest-bot/internal/delivery/stream"
	"github.com/aliskhannn/chorequest-bot/internal/delivery/telegram"
)

var botCommands = []tgbotapi.BotCommand{
	{Command: "progress", Description: "Show your level, XP and streak"},
	{Command: "achievements", Description: "Show your achievements"},
	{Command: "help", Description: "Help"},
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the worker",
		Long: `Run the HTTP API, the Redis stream consumer, the daily digest scheduler
and the Telegram bot. Components without configuration are skipped.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, rootOpts)
		},
	}
}

func run(ctx context.Context, opts *RootOptions) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg

	// Every connection is opened before the first component starts.
	var consumer *stream.Consumer
	if cfg.Redis.Addr != "" {
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		consumer = stream.NewConsumer(client, a.progression, stream.Config{
			Stream:   cfg.Redis.Stream,
			Group:    cfg.Redis.Group,
			Consumer: cfg.Redis.Consumer,
			Block:    cfg.Redis.Block,
			MinIdle:  cfg.Redis.MinIdle,
		}, a.logger)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(api.Deps{
			Transitions:  a.progression,
			Progress:     a.progression,
			Achievements: a.achievements,
			Praise:       a.praise,
			Ready:        a.stores.ping,
		}, cfg.HTTP.Timeout, a.logger)

		g.Go(func() error {
			return api.ListenAndServe(ctx, cfg.HTTP.Addr, srv.Router(), a.logger)
		})
	}

	if consumer != nil {
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if cfg.Digest.Schedule != "" {
		g.Go(func() error { return a.digest.Start(ctx) })
	}

	if a.bot != nil && cfg.Telegram.Commands {
		if _, err := a.bot.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
			a.logger.Warn("failed to set bot commands", zap.Error(err))
		}

		handler := telegram.NewHandler(a.bot, a.logger, a.stores.users, a.progression, a.achievements)
		g.Go(func() error { return handler.Run(ctx) })
	}

	a.logger.Info("chorequest started", zap.String("env", cfg.Env), zap.String("store", cfg.Store))

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("shutdown complete")
	return nil
}

func connectRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
