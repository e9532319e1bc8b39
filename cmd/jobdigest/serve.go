package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/config"
	"go-jobdigest/internal/pipeline"
	"go-jobdigest/internal/server"
	"go-jobdigest/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbound listener until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			connector, err := browser.NewConnector(a.cfg)
			if err != nil {
				return err
			}
			dispatcher := telegram.NewDispatcher(a.bot, telegram.Target{ChatID: a.cfg.TelegramChatID}, a.logger)
			runner := pipeline.New(connector, dispatcher, a.cfg, a.logger)

			g, gctx := errgroup.WithContext(ctx)

			var updates chan tgbotapi.Update
			if a.cfg.ListenMode == config.ListenWebhook {
				if err := telegram.RegisterWebhook(a.bot, a.cfg.WebhookURL); err != nil {
					return err
				}
				a.logger.Infof("🪝 Webhook registered at %s", a.cfg.WebhookURL)
				updates = make(chan tgbotapi.Update, 64)
				g.Go(func() error {
					return ignoreCanceled(a.listener.Run(gctx, updates))
				})
			} else {
				g.Go(func() error {
					return ignoreCanceled(a.listener.Poll(gctx, a.bot))
				})
			}

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:    a.cfg.HTTPAddr,
				Handler: server.New(runner, updates, a.logger).Handler(),
			}

			g.Go(func() error {
				a.logger.Infof("🌍 Server listening on %s", a.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				a.logger.Info("🛑 Shutting down...")
				return srv.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}
