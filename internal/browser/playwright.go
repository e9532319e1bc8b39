package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// projectAttrs reads the named attributes off every matched element in a
// single round trip, so the result is one consistent DOM snapshot.
const projectAttrs = `(els, attrs) => els.map(el => attrs.map(a => {
	const v = el.getAttribute(a);
	return v === null ? "" : v;
}))`

// PlaywrightConnector attaches through playwright's ConnectOverCDP.
type PlaywrightConnector struct {
	Cookies []playwright.OptionalCookie
}

func (c *PlaywrightConnector) Connect(ctx context.Context, endpoint string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	//the driver only, chrome is already running
	runOpts := &playwright.RunOptions{SkipInstallBrowsers: true}
	if err := playwright.Install(runOpts); err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("failed to install playwright driver: %w", err)}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("failed to start playwright: %w", err)}
	}

	fail := func(err error) (*Session, error) {
		_ = pw.Stop()
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	browser, err := pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return fail(err)
	}

	//reuse the user's default context so existing logins apply
	var browserCtx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		browserCtx = contexts[0]
	} else {
		browserCtx, err = browser.NewContext()
		if err != nil {
			return fail(fmt.Errorf("failed to create browser context: %w", err))
		}
	}

	if len(c.Cookies) > 0 {
		if err := browserCtx.AddCookies(c.Cookies); err != nil {
			return fail(fmt.Errorf("failed to add cookies: %w", err))
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return fail(fmt.Errorf("failed to create page: %w", err))
	}

	return NewSession(&playwrightPage{page: page, pw: pw}), nil
}

type playwrightPage struct {
	page playwright.Page
	pw   *playwright.Playwright
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return 0, translate(err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *playwrightPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return translate(err)
}

func (p *playwrightPage) QueryAttributes(ctx context.Context, selector string, attrs []string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := p.page.Locator(selector).EvaluateAll(projectAttrs, attrs)
	if err != nil {
		return nil, translate(err)
	}
	return toRows(raw, len(attrs))
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *playwrightPage) Close() error {
	closeErr := p.page.Close()
	if err := p.pw.Stop(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	return closeErr
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// toRows converts the evaluate result ([]any of []any of string) to strings.
func toRows(raw any, width int) ([][]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected evaluate result %T", raw)
	}
	rows := make([][]string, 0, len(list))
	for i, item := range list {
		cells, ok := item.([]any)
		if !ok || len(cells) != width {
			return nil, fmt.Errorf("unexpected row %d: %v", i, item)
		}
		row := make([]string, width)
		for j, cell := range cells {
			if s, ok := cell.(string); ok {
				row[j] = s
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
