package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"reelbot"
	"reelbot/async"
	"reelbot/internal/config"
	"reelbot/internal/fetch"
	"reelbot/internal/locate"
	"reelbot/internal/pipeline"
	"reelbot/internal/store"
	"reelbot/internal/telegram"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = reelbot.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "reelbot",
		Usage: "telegram bot that fetches instagram reel videos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "token-file",
				Value: config.DefaultTokenFile,
				Usage: "read the bot token from `FILE`",
			},
			&cli.StringFlag{
				Name:  "admin-file",
				Value: config.DefaultAdminFile,
				Usage: "read the admin username from `FILE`",
			},
			&cli.StringFlag{
				Name:  "data",
				Value: ".",
				Usage: "keep the user list and access log in `DIR`",
			},
			&cli.StringFlag{
				Name:  "store",
				Value: config.StoreBackendFile,
				Usage: "access store `BACKEND`: file or bolt",
			},
			&cli.StringFlag{
				Name:  "mirror-host",
				Value: reelbot.DefaultMirrorHost,
				Usage: "resolve reels through mirror `HOST`",
			},
			&cli.DurationFlag{
				Name:  "page-timeout",
				Value: locate.DefaultPageLoadTimeout,
				Usage: "give up loading a reel page after `DURATION`",
			},
			&cli.IntFlag{
				Name:  "locate-concurrency",
				Value: pipeline.DefaultLocateConcurrency,
				Usage: "run at most `N` browser contexts at once",
			},
		},
		Action: func(c *cli.Context) error {
			return run(ctx, c)
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		logger.Error(ctx.Err().Error())
		stop()
	}
}

func run(ctx context.Context, c *cli.Context) error {
	logger := reelbot.Logger(ctx)

	cfg, err := config.Load(c.String("token-file"), c.String("admin-file"))
	if err != nil {
		return err
	}
	cfg.DataDir = c.String("data")
	cfg.StoreBackend = c.String("store")
	cfg.MirrorHost = c.String("mirror-host")
	cfg.PageLoadTimeout = c.Duration("page-timeout")
	cfg.LocateConcurrency = c.Int("locate-concurrency")
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return err
	}

	locator := locate.New(locate.NewBrowserLoader(cfg.PageLoadTimeout))
	fetcher := fetch.New(fetch.WithClient(&http.Client{Timeout: cfg.FetchTimeout}))
	transport := telegram.NewTransport(api)
	coordinator := pipeline.NewCoordinator(
		s,
		reelbot.NewNormalizer(cfg.MirrorHost),
		locator,
		fetcher,
		transport,
		cfg.LocateConcurrency,
	)
	bot := telegram.NewBot(api, transport, coordinator, s, cfg.Admin)

	logger.Info("bot starting",
		zap.String("admin", cfg.Admin),
		zap.String("mirror_host", cfg.MirrorHost),
		zap.String("store", cfg.StoreBackend),
	)
	return bot.Run(ctx)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, err
		}
		return store.NewBoltStore(filepath.Join(cfg.DataDir, "reelbot.db"))
	default:
		return store.NewFileStore(cfg.DataDir)
	}
}
