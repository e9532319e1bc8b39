// Package pipeline runs one connect -> navigate -> extract -> format -> dispatch cycle.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/config"
	"go-jobdigest/internal/digest"
	"go-jobdigest/internal/scraper"
	"go-jobdigest/internal/scraper/linkedin"
	"go-jobdigest/internal/telegram"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRunInProgress = errors.New("pipeline: a run is already in progress")

// Dispatcher delivers one digest. *telegram.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) (*telegram.DeliveryAck, error)
}

type Result struct {
	RunID      string
	Listings   []scraper.Listing
	Digest     string
	Dispatched bool
	Ack        *telegram.DeliveryAck
	Duration   time.Duration
}

type Runner struct {
	connector   browser.Connector
	dispatcher  Dispatcher
	cfg         *config.Config
	logger      *zap.SugaredLogger
	formatter   digest.Formatter
	screenshots *browser.ScreenshotDebugger

	//one run at a time per Runner
	mu sync.Mutex
}

func New(connector browser.Connector, dispatcher Dispatcher, cfg *config.Config, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		connector:   connector,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger,
		formatter:   digest.Formatter{Mode: cfg.EscapeMode},
		screenshots: browser.NewScreenshotDebugger(cfg.ScreenshotDir, logger),
	}
}

// TargetURL is search_url, or the LinkedIn search built from config.
func TargetURL(cfg *config.Config) string {
	if cfg.SearchURL != "" {
		return cfg.SearchURL
	}
	return linkedin.SearchURL(linkedin.Query{
		Keywords:     cfg.LinkedIn.Keywords,
		Experience:   cfg.LinkedIn.Experience,
		Workplace:    cfg.LinkedIn.Workplace,
		PostedWithin: cfg.LinkedIn.PostedWithin,
		GeoID:        cfg.LinkedIn.GeoID,
	})
}

// Descriptor reads the LinkedIn job cards when the search is built from
// linkedin.keywords, and the configured selector otherwise.
func (r *Runner) Descriptor() scraper.Descriptor {
	d := scraper.Descriptor{
		Selector:   r.cfg.Selector,
		LabelAttr:  r.cfg.LabelAttr,
		URLAttr:    r.cfg.URLAttr,
		RenderWait: r.cfg.RenderWait,
	}
	if r.cfg.SearchURL == "" {
		d = linkedin.Descriptor(r.cfg.RenderWait)
	}
	d.Limit = r.cfg.MaxListings
	d.StripQuery = r.cfg.StripQuery
	return d
}

// Run executes the pipeline once. The first failing stage aborts the run;
// the page is closed on every path. At most one message is sent.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := r.logger.With("run_id", result.RunID)
	target := TargetURL(r.cfg)

	fail := func(stage string, err error) (*Result, error) {
		log.Errorw("❌ Run failed", "stage", stage, "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	log.Infof("🚀 Attaching to browser at %s", r.cfg.DebugEndpoint)
	session, err := r.connector.Connect(ctx, r.cfg.DebugEndpoint)
	if err != nil {
		return fail("connect", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("⚠️ Failed to close page: %v", err)
		}
	}()

	log.Infof("🌐 Visiting %s", target)
	if err := scraper.Navigate(ctx, session, target, r.cfg.NavigationTimeout); err != nil {
		r.capture(session, "navigation-failed", "🚨 Navigation failed")
		return fail("navigate", err)
	}

	listings, err := scraper.Extract(ctx, session, r.Descriptor())
	if err != nil {
		r.capture(session, "extraction-failed", "🚨 Extraction failed")
		return fail("extract", err)
	}
	result.Listings = listings
	log.Infof("📦 Found %d listings", len(listings))

	if len(listings) == 0 {
		log.Info("ℹ️ No listings on the page, nothing to send")
		result.Duration = time.Since(start)
		return result, nil
	}

	result.Digest = r.formatter.Format(listings)
	ack, err := r.dispatcher.Dispatch(ctx, result.Digest)
	if err != nil {
		return fail("dispatch", err)
	}
	result.Dispatched = true
	result.Ack = ack
	result.Duration = time.Since(start)

	log.Infof("🏁 Digest with %d listings sent in %v", len(listings), result.Duration.Round(time.Millisecond))
	return result, nil
}

func (r *Runner) capture(session *browser.Session, name, message string) {
	if _, err := r.screenshots.CaptureAndLog(session.Page(), name, message); err != nil {
		r.logger.Debugf("screenshot skipped: %v", err)
	}
}
