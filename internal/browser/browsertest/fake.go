// Package browsertest provides in-memory browser doubles for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-jobdigest/internal/browser"
)

// FakePage serves a fixed list of elements. Zero value is a blank 200 page.
type FakePage struct {
	mu sync.Mutex

	Status   int
	GotoErr  error
	WaitErr  error
	QueryErr error

	// Elements are the nodes matching any selector, in document order.
	Elements []map[string]string

	CurrentURL    string
	ScreenshotErr error

	GotoCalls   []string
	Screenshots []string
	CloseCalls  int
}

func (p *FakePage) Goto(ctx context.Context, url string, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.GotoCalls = append(p.GotoCalls, url)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.GotoErr != nil {
		return 0, p.GotoErr
	}
	p.CurrentURL = url
	return p.Status, nil
}

func (p *FakePage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.WaitErr != nil {
		return p.WaitErr
	}
	if len(p.Elements) == 0 {
		return fmt.Errorf("%w: waiting for %s", browser.ErrTimeout, selector)
	}
	return nil
}

func (p *FakePage) QueryAttributes(ctx context.Context, selector string, attrs []string) ([][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	rows := make([][]string, 0, len(p.Elements))
	for _, el := range p.Elements {
		row := make([]string, len(attrs))
		for i, a := range attrs {
			row[i] = el[a]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *FakePage) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Screenshots = append(p.Screenshots, path)
	return p.ScreenshotErr
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CloseCalls++
	return nil
}

func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CloseCalls > 0
}

// FakeConnector hands out Page, or fails with Err.
type FakeConnector struct {
	mu sync.Mutex

	Page *FakePage
	Err  error

	Endpoints []string
}

func (c *FakeConnector) Connect(ctx context.Context, endpoint string) (*browser.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Endpoints = append(c.Endpoints, endpoint)
	if c.Err != nil {
		return nil, &browser.ConnectionError{Endpoint: endpoint, Err: c.Err}
	}
	return browser.NewSession(c.Page), nil
}
