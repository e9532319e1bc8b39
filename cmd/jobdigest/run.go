package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/config"
	"go-jobdigest/internal/pipeline"
	"go-jobdigest/internal/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runCmd(configPath *string) *cobra.Command {
	var (
		timeout time.Duration
		dryRun  bool
		saveDir string
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Scrape the search page once and send the digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			connector, err := browser.NewConnector(a.cfg)
			if err != nil {
				return err
			}

			var dispatcher pipeline.Dispatcher = telegram.NewDispatcher(a.bot, telegram.Target{ChatID: a.cfg.TelegramChatID}, a.logger)
			if dryRun {
				dispatcher = &printDispatcher{w: cmd.OutOrStdout()}
			}
			runner := pipeline.New(connector, dispatcher, a.cfg, a.logger)

			a.logger.Info("🚀 Starting job digest run...")

			//the listener lives for the whole run, independent of its outcome
			listenCtx, stopListening := context.WithCancel(ctx)
			g := new(errgroup.Group)
			if a.cfg.ListenMode == config.ListenPolling {
				g.Go(func() error {
					return ignoreCanceled(a.listener.Poll(listenCtx, a.bot))
				})
			} else {
				a.logger.Info("ℹ️ Webhook mode: inbound messages are handled by `serve`")
			}

			result, runErr := runner.Run(ctx)
			stopListening()
			if err := g.Wait(); err != nil {
				a.logger.Warnf("⚠️ Listener stopped with error: %v", err)
			}
			if runErr != nil {
				return runErr
			}

			if saveDir != "" {
				saveResult(saveDir, result, a.logger)
			}
			a.logger.Info("🏁 Execution finished.")
			return nil
		},
	}

	c.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "upper bound for the whole run")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	c.Flags().StringVar(&saveDir, "save-dir", "", "write the run result as JSON into this directory")
	return c
}

// printDispatcher writes the digest to w instead of Telegram.
type printDispatcher struct {
	w io.Writer
}

func (p *printDispatcher) Dispatch(ctx context.Context, text string) (*telegram.DeliveryAck, error) {
	if _, err := fmt.Fprintln(p.w, text); err != nil {
		return nil, &telegram.DeliveryError{Kind: telegram.KindTransport, Err: err}
	}
	return &telegram.DeliveryAck{SentAt: time.Now()}, nil
}

func saveResult(dir string, result *pipeline.Result, logger *zap.SugaredLogger) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warnf("⚠️ Failed to create %s: %v", dir, err)
		return
	}

	//gen filename: job-digest-YYYY-MM-DD_HH-MM-SS.json
	filename := fmt.Sprintf("job-digest-%s.json", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		logger.Warnf("⚠️ Failed to marshal result to JSON: %v", err)
		return
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		logger.Warnf("⚠️ Failed to write %s: %v", filePath, err)
		return
	}
	logger.Infof("📁 Result saved to %s", filePath)
}
