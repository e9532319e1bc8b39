package main

import (
	"context"
	"errors"
	"fmt"

	"go-jobdigest/internal/config"
	"go-jobdigest/internal/logging"
	"go-jobdigest/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "jobdigest",
		Short:        "Send the job listings of one search page to Telegram",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config")

	cmd.AddCommand(
		runCmd(&configPath),
		serveCmd(&configPath),
		listenCmd(&configPath),
	)
	return cmd
}

// app holds what every subcommand builds from the config.
type app struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	bot      *tgbotapi.BotAPI
	listener *telegram.Listener
}

func setup(configPath string) (*app, error) {
	//load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger.Infof("🔧 Config loaded. Driver: %s, endpoint: %s", cfg.Driver, cfg.DebugEndpoint)

	//init telegram bot
	bot, err := telegram.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Errorf("❌ Failed to init Telegram Bot: %v", err)
		return nil, err
	}
	logger.Infof("🤖 Telegram Bot initialized as @%s", bot.Self.UserName)

	listener := telegram.NewListener(logger)
	listener.OnMessage(telegram.LogMessages(logger))

	return &app{cfg: cfg, logger: logger, bot: bot, listener: listener}, nil
}

// ignoreCanceled treats a shutdown-driven context error as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
