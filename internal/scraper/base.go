// Navigate a session to the search page
// Extract listings with a declarative descriptor

package scraper

import (
	"errors"
	"fmt"
	"time"

	"go-jobdigest/internal/browser"
)

// Listing is one job posting pulled off the page. Rank is the 1-based
// document position and never changes after extraction.
type Listing struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Descriptor says what to read off the page, without any page-side code.
type Descriptor struct {
	Selector  string
	LabelAttr string
	URLAttr   string

	//RenderWait bounds the wait for client-rendered matches; 0 skips it
	RenderWait time.Duration
	//Limit keeps the first N listings; 0 keeps all
	Limit int
	//StripQuery drops tracking params from URLs
	StripQuery bool
}

type NavigationError struct {
	URL    string
	Status int
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigate to %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the page never reached the load state in time.
func (e *NavigationError) Timeout() bool {
	return errors.Is(e.Err, browser.ErrTimeout)
}

// ExtractionError is a structural failure, never "zero matches".
type ExtractionError struct {
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
