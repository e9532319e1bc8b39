package scraper

import (
	"context"
	"fmt"
	"time"

	"go-jobdigest/internal/browser"
)

// Navigate drives the session's page to url and waits for the load event,
// at most timeout. No retries.
func Navigate(ctx context.Context, session *browser.Session, url string, timeout time.Duration) error {
	status, err := session.Page().Goto(ctx, url, timeout)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	if status >= 400 {
		return &NavigationError{URL: url, Status: status, Err: fmt.Errorf("main document returned HTTP %d", status)}
	}
	return nil
}
