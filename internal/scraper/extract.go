package scraper

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go-jobdigest/internal/browser"

	"golang.org/x/text/unicode/norm"
)

// Extract reads every match of d.Selector in document order. The result
// reflects the DOM at the moment of the query. No matches is an empty,
// non-nil slice.
func Extract(ctx context.Context, session *browser.Session, d Descriptor) ([]Listing, error) {
	page := session.Page()

	//client-rendered lists can show up after the load event
	if d.RenderWait > 0 {
		err := page.WaitForSelector(ctx, d.Selector, d.RenderWait)
		if err != nil && !errors.Is(err, browser.ErrTimeout) {
			return nil, &ExtractionError{Selector: d.Selector, Err: err}
		}
	}

	rows, err := page.QueryAttributes(ctx, d.Selector, []string{d.LabelAttr, d.URLAttr})
	if err != nil {
		return nil, &ExtractionError{Selector: d.Selector, Err: err}
	}

	base := page.URL()
	listings := make([]Listing, 0, len(rows))
	for i, row := range rows {
		listings = append(listings, Listing{
			Rank:  i + 1,
			Label: cleanLabel(row[0]),
			URL:   resolveURL(base, row[1], d.StripQuery),
		})
	}

	if d.Limit > 0 && len(listings) > d.Limit {
		listings = listings[:d.Limit]
	}
	return listings, nil
}

// cleanLabel collapses whitespace and NFC-normalizes the label text.
func cleanLabel(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// resolveURL makes href absolute against the page URL, like el.href would.
func resolveURL(base, href string, stripQuery bool) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if b, err := url.Parse(base); err == nil && b.IsAbs() {
		ref = b.ResolveReference(ref)
	}
	if stripQuery {
		ref.RawQuery = ""
		ref.Fragment = ""
	}
	return ref.String()
}
