package linkedin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-jobdigest/internal/scraper"
)

const (
	SearchBaseURL = "https://www.linkedin.com/jobs/search/"

	// JobLinkSelector matches the anchor of every job card in the results list.
	JobLinkSelector = ".job-card-container__link"
)

// Experience levels (f_E).
const (
	ExpInternship = 1
	ExpEntry      = 2
	ExpAssociate  = 3
	ExpMidSenior  = 4
)

// Workplace types (f_WT).
const (
	WorkOnsite = 1
	WorkRemote = 2
	WorkHybrid = 3
)

// Query is a single LinkedIn job search.
type Query struct {
	Keywords     string
	Experience   []int
	Workplace    []int
	PostedWithin time.Duration
	GeoID        string
}

// SearchURL builds the results page URL for q.
func SearchURL(q Query) string {
	v := url.Values{}
	v.Set("keywords", strings.TrimSpace(q.Keywords))
	if len(q.Experience) > 0 {
		v.Set("f_E", joinInts(q.Experience))
	}
	if len(q.Workplace) > 0 {
		v.Set("f_WT", joinInts(q.Workplace))
	}
	if q.PostedWithin > 0 {
		v.Set("f_TPR", fmt.Sprintf("r%d", int(q.PostedWithin.Seconds())))
	}
	if q.GeoID != "" {
		v.Set("geoId", q.GeoID)
	}
	v.Set("origin", "JOB_SEARCH_PAGE_JOB_FILTER")
	return SearchBaseURL + "?" + v.Encode()
}

// Descriptor reads the job card anchors: aria-label holds the title,
// href the job view link.
func Descriptor(renderWait time.Duration) scraper.Descriptor {
	return scraper.Descriptor{
		Selector:   JobLinkSelector,
		LabelAttr:  "aria-label",
		URLAttr:    "href",
		RenderWait: renderWait,
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
