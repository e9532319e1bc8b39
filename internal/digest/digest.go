// Package digest renders listings into the single text message sent per run.
package digest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go-jobdigest/internal/scraper"
)

// Escape modes.
const (
	// EscapeNone writes labels and URLs verbatim.
	EscapeNone = "none"
	// EscapeStrip drops Markdown control characters from labels and
	// percent-encodes the characters that would end a link target.
	EscapeStrip = "strip"
)

var (
	labelStripper = strings.NewReplacer("_", "", "*", "", "`", "", "[", "", "]", "")
	urlEncoder    = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20")

	lineRegex = regexp.MustCompile(`^(\d+): \[(.*)\]\((.*)\)$`)
)

type Formatter struct {
	Mode string
}

// Format is the verbatim rendering: "<rank>: [<label>](<url>)" per line.
func Format(listings []scraper.Listing) string {
	return Formatter{Mode: EscapeNone}.Format(listings)
}

// Format keeps the input order; an empty input gives "".
func (f Formatter) Format(listings []scraper.Listing) string {
	var b strings.Builder
	for i, l := range listings {
		if i > 0 {
			b.WriteByte('\n')
		}
		label, url := l.Label, l.URL
		if f.Mode == EscapeStrip {
			label = strings.Join(strings.Fields(labelStripper.Replace(label)), " ")
			url = urlEncoder.Replace(url)
		}
		fmt.Fprintf(&b, "%d: [%s](%s)", l.Rank, label, url)
	}
	return b.String()
}

// Parse reads a digest back into listings, one per line.
func Parse(text string) ([]scraper.Listing, error) {
	if text == "" {
		return []scraper.Listing{}, nil
	}

	lines := strings.Split(text, "\n")
	listings := make([]scraper.Listing, 0, len(lines))
	for i, line := range lines {
		m := lineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d is not a digest entry: %q", i+1, line)
		}
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad rank: %w", i+1, err)
		}
		listings = append(listings, scraper.Listing{Rank: rank, Label: m[2], URL: m[3]})
	}
	return listings, nil
}
