package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/browser/browsertest"
	"go-jobdigest/internal/config"
	"go-jobdigest/internal/logging"
	"go-jobdigest/internal/scraper"
	"go-jobdigest/internal/telegram"
	"go-jobdigest/internal/telegram/telegramtest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		TelegramChatID:    42,
		SearchURL:         "https://www.linkedin.com/jobs/search/?keywords=english",
		Selector:          ".job-card-container__link",
		LabelAttr:         "aria-label",
		URLAttr:           "href",
		DebugEndpoint:     "http://localhost:9222",
		NavigationTimeout: time.Second,
		RenderWait:        time.Second,
		EscapeMode:        config.EscapeStrip,
	}
}

func threeJobs() *browsertest.FakePage {
	return &browsertest.FakePage{
		Status: 200,
		Elements: []map[string]string{
			{"aria-label": "Job One", "href": "http://x/1"},
			{"aria-label": "Job Two", "href": "http://x/2"},
			{"aria-label": "Job Three", "href": "http://x/3"},
		},
	}
}

type harness struct {
	page      *browsertest.FakePage
	connector *browsertest.FakeConnector
	bot       *telegramtest.FakeBot
	runner    *Runner
}

func newHarness(cfg *config.Config, page *browsertest.FakePage) *harness {
	h := &harness{
		page:      page,
		connector: &browsertest.FakeConnector{Page: page},
		bot:       &telegramtest.FakeBot{},
	}
	dispatcher := telegram.NewDispatcher(h.bot, telegram.Target{ChatID: cfg.TelegramChatID}, logging.Nop())
	h.runner = New(h.connector, dispatcher, cfg, logging.Nop())
	return h
}

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(testConfig(), threeJobs())

	result, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	want := "1: [Job One](http://x/1)\n2: [Job Two](http://x/2)\n3: [Job Three](http://x/3)"
	assert.Equal(t, want, result.Digest)
	assert.True(t, result.Dispatched)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Listings, 3)
	require.NotNil(t, result.Ack)
	assert.Equal(t, int64(42), result.Ack.ChatID)

	require.Len(t, h.bot.Sent, 1)
	assert.Equal(t, want, h.bot.Sent[0].Text)
	assert.Equal(t, int64(42), h.bot.Sent[0].ChatID)

	assert.Equal(t, []string{"http://localhost:9222"}, h.connector.Endpoints)
	assert.Equal(t, []string{"https://www.linkedin.com/jobs/search/?keywords=english"}, h.page.GotoCalls)
	assert.Equal(t, 1, h.page.CloseCalls)
}

func TestRun_ConnectFailure(t *testing.T) {
	h := newHarness(testConfig(), threeJobs())
	h.connector.Err = errors.New("connect ECONNREFUSED 127.0.0.1:9222")

	result, err := h.runner.Run(context.Background())
	assert.Nil(t, result)

	var connErr *browser.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Empty(t, h.bot.Sent)
	assert.Empty(t, h.page.GotoCalls)
	assert.Equal(t, 0, h.page.CloseCalls)
}

func TestRun_NavigationTimeoutClosesPage(t *testing.T) {
	cfg := testConfig()
	cfg.ScreenshotDir = t.TempDir()
	page := threeJobs()
	page.GotoErr = fmt.Errorf("%w: Timeout 1000ms exceeded", browser.ErrTimeout)
	h := newHarness(cfg, page)

	_, err := h.runner.Run(context.Background())

	var navErr *scraper.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.True(t, navErr.Timeout())
	assert.True(t, page.Closed())
	assert.Empty(t, h.bot.Sent)
	assert.Len(t, page.Screenshots, 1)
}

func TestRun_HTTPErrorStatus(t *testing.T) {
	page := threeJobs()
	page.Status = 429
	h := newHarness(testConfig(), page)

	_, err := h.runner.Run(context.Background())

	var navErr *scraper.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, 429, navErr.Status)
	assert.True(t, page.Closed())
	assert.Empty(t, h.bot.Sent)
}

func TestRun_ExtractionFailureClosesPage(t *testing.T) {
	page := threeJobs()
	page.QueryErr = errors.New("Execution context was destroyed")
	h := newHarness(testConfig(), page)

	_, err := h.runner.Run(context.Background())

	var extErr *scraper.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.True(t, page.Closed())
	assert.Empty(t, h.bot.Sent)
}

func TestRun_NoListingsSkipsDispatch(t *testing.T) {
	h := newHarness(testConfig(), &browsertest.FakePage{Status: 200})

	result, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Listings)
	assert.Empty(t, result.Digest)
	assert.False(t, result.Dispatched)
	assert.Empty(t, h.bot.Sent)
	assert.True(t, h.page.Closed())
}

func TestRun_DeliveryFailureIsReportedOnce(t *testing.T) {
	h := newHarness(testConfig(), threeJobs())
	h.bot.SendErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}

	_, err := h.runner.Run(context.Background())

	var delErr *telegram.DeliveryError
	require.True(t, errors.As(err, &delErr))
	assert.Equal(t, telegram.KindFormat, delErr.Kind)
	assert.True(t, h.page.Closed())
}

type countingDispatcher struct {
	calls []string
}

func (d *countingDispatcher) Dispatch(ctx context.Context, text string) (*telegram.DeliveryAck, error) {
	d.calls = append(d.calls, text)
	return &telegram.DeliveryAck{MessageID: len(d.calls)}, nil
}

func TestRun_AtMostOneDispatchPerRun(t *testing.T) {
	cfg := testConfig()
	page := threeJobs()
	dispatcher := &countingDispatcher{}
	runner := New(&browsertest.FakeConnector{Page: page}, dispatcher, cfg, logging.Nop())

	for i := 0; i < 3; i++ {
		_, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, dispatcher.calls, i+1)
	}
	//runs are independent, no dedup across them
	assert.Equal(t, dispatcher.calls[0], dispatcher.calls[2])
}

func TestRun_MarkupInLabelsIsStripped(t *testing.T) {
	page := &browsertest.FakePage{
		Status:   200,
		Elements: []map[string]string{{"aria-label": "Go_Dev [Remote]", "href": "http://x/1"}},
	}
	h := newHarness(testConfig(), page)

	result, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1: [GoDev Remote](http://x/1)", result.Digest)
}

type blockingConnector struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingConnector) Connect(ctx context.Context, endpoint string) (*browser.Session, error) {
	close(c.entered)
	<-c.release
	return nil, &browser.ConnectionError{Endpoint: endpoint, Err: errors.New("gave up")}
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	c := &blockingConnector{entered: make(chan struct{}), release: make(chan struct{})}
	runner := New(c, &countingDispatcher{}, testConfig(), logging.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		done <- err
	}()
	<-c.entered

	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(c.release)
	var connErr *browser.ConnectionError
	assert.True(t, errors.As(<-done, &connErr))
}

func TestTargetURL(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, cfg.SearchURL, TargetURL(cfg))

	cfg.SearchURL = ""
	cfg.LinkedIn = config.LinkedInQuery{Keywords: "golang", Workplace: []int{2}}
	u, err := url.Parse(TargetURL(cfg))
	require.NoError(t, err)
	assert.Equal(t, "golang", u.Query().Get("keywords"))
	assert.Equal(t, "2", u.Query().Get("f_WT"))
}

func TestDescriptor(t *testing.T) {
	cfg := testConfig()
	cfg.Selector = "a.job"
	cfg.LabelAttr = "title"
	cfg.MaxListings = 5
	r := New(&browsertest.FakeConnector{}, &countingDispatcher{}, cfg, logging.Nop())

	d := r.Descriptor()
	assert.Equal(t, "a.job", d.Selector)
	assert.Equal(t, "title", d.LabelAttr)
	assert.Equal(t, 5, d.Limit)

	cfg.SearchURL = ""
	cfg.LinkedIn.Keywords = "golang"
	cfg.StripQuery = true
	d = r.Descriptor()
	assert.Equal(t, ".job-card-container__link", d.Selector)
	assert.Equal(t, "aria-label", d.LabelAttr)
	assert.Equal(t, 5, d.Limit)
	assert.True(t, d.StripQuery)
}
