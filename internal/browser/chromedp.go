package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromedpConnector attaches with chromedp's remote allocator. Each
// session gets its own tab; cancelling it closes the tab only.
type ChromedpConnector struct{}

func (ChromedpConnector) Connect(ctx context.Context, endpoint string) (*Session, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, endpoint)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	//an empty Run opens the tab
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	return NewSession(&chromedpPage{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}), nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// bound derives a tab context that also ends when ctx ends or timeout elapses.
func (p *chromedpPage) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		tctx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		tctx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) Goto(ctx context.Context, url string, timeout time.Duration) (int, error) {
	tctx, cancel := p.bound(ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(tctx, chromedp.Navigate(url))
	if err != nil {
		return 0, p.translate(ctx, tctx, err)
	}
	if resp == nil {
		return 0, nil
	}
	return int(resp.Status), nil
}

func (p *chromedpPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := p.bound(ctx, timeout)
	defer cancel()

	err := chromedp.Run(tctx, chromedp.WaitReady(selector, chromedp.ByQuery))
	return p.translate(ctx, tctx, err)
}

func (p *chromedpPage) QueryAttributes(ctx context.Context, selector string, attrs []string) ([][]string, error) {
	tctx, cancel := p.bound(ctx, 0)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(tctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		row := make([]string, len(attrs))
		for i, a := range attrs {
			row[i] = n.AttributeValue(a)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *chromedpPage) URL() string {
	tctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()

	var u string
	if err := chromedp.Run(tctx, chromedp.Location(&u)); err != nil {
		return ""
	}
	return u
}

func (p *chromedpPage) Screenshot(path string) error {
	tctx, cancel := context.WithTimeout(p.ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(tctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

// translate maps a deadline hit by our own timeout to ErrTimeout, leaving
// caller cancellation as-is.
func (p *chromedpPage) translate(ctx, tctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
