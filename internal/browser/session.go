// Package browser attaches to an already-running Chrome over its remote
// debugging endpoint and hands out one page per Session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is wrapped by drivers when a bounded wait elapses.
var ErrTimeout = errors.New("browser: timed out")

// Page is the driver-neutral slice of a remote tab that the scraper drives.
type Page interface {
	// Goto navigates and blocks until the load event fires or timeout elapses.
	// status is the main document's HTTP status, 0 when the driver saw no response.
	Goto(ctx context.Context, url string, timeout time.Duration) (status int, err error)

	// WaitForSelector blocks until selector matches at least one node.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// QueryAttributes returns, for every node matching selector in document
	// order, the value of each attribute in attrs ("" when absent).
	QueryAttributes(ctx context.Context, selector string, attrs []string) ([][]string, error)

	URL() string
	Screenshot(path string) error
	Close() error
}

// Connector attaches to a browser endpoint and opens a fresh page.
type Connector interface {
	Connect(ctx context.Context, endpoint string) (*Session, error)
}

// Session owns exactly one page. Close is safe to call more than once.
type Session struct {
	page Page

	once     sync.Once
	closeErr error
}

func NewSession(page Page) *Session {
	return &Session{page: page}
}

func (s *Session) Page() Page {
	return s.page
}

// Close closes the page and drops the driver connection. The remote
// browser process keeps running.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.closeErr = s.page.Close()
	})
	return s.closeErr
}

// ConnectionError means the endpoint was unreachable or refused the handshake.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to browser at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
