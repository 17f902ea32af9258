package judge

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchMode selects how a status page reports scores.
type FetchMode string

const (
	// FetchPaged walks the paginated submission history.
	FetchPaged FetchMode = "paged"
	// FetchTable reads an "achieved / possible" score table in one request.
	FetchTable FetchMode = "table"
)

// PageSize is the number of submissions per status page.
const PageSize = 10

// DefaultMaxPages bounds the paged walk.
const DefaultMaxPages = 1000

var (
	statusURLPattern  = regexp.MustCompile(`^(.*?/status/\d+/\d+/\d+)(/\d+)?(\?.*)$`)
	scoreTokenPattern = regexp.MustCompile(`(\d+)`)
	fractionPattern   = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)`)
)

// PageGetter fetches a page body. *Session implements it.
type PageGetter interface {
	Get(ctx context.Context, pageURL string) ([]byte, error)
}

// Fetcher retrieves the best score of one student on one problem.
type Fetcher struct {
	getter   PageGetter
	mode     FetchMode
	maxPages int
}

// NewFetcher returns a Fetcher. A non-positive maxPages uses DefaultMaxPages.
func NewFetcher(getter PageGetter, mode FetchMode, maxPages int) *Fetcher {
	if mode == "" {
		mode = FetchPaged
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Fetcher{getter: getter, mode: mode, maxPages: maxPages}
}

// ParseFetchMode parses "paged" or "table".
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(strings.ToLower(strings.TrimSpace(s))) {
	case FetchPaged:
		return FetchPaged, nil
	case FetchTable:
		return FetchTable, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want paged or table)", s)
	}
}

// MaxScore returns the highest score found on the status page(s), or 0.
func (f *Fetcher) MaxScore(ctx context.Context, statusURL string) (int, error) {
	if f.mode == FetchTable {
		return f.tableScore(ctx, statusURL)
	}
	return f.pagedScore(ctx, statusURL)
}

// PageURL returns the URL of the given 1-based status page.
func PageURL(statusURL string, page int) (string, error) {
	m := statusURLPattern.FindStringSubmatch(statusURL)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrStatusURL, statusURL)
	}
	base, query := m[1], m[3]
	if page <= 1 {
		return base + query, nil
	}
	return fmt.Sprintf("%s/%d%s", base, PageSize*(page-1), query), nil
}

func (f *Fetcher) pagedScore(ctx context.Context, statusURL string) (int, error) {
	if _, err := PageURL(statusURL, 1); err != nil {
		return 0, err
	}
	best := 0
	for page := 1; page <= f.maxPages; page++ {
		pageURL, _ := PageURL(statusURL, page)
		doc, err := f.load(ctx, pageURL)
		if err != nil {
			return 0, err
		}
		tokens := spanScores(doc)
		if len(tokens) == 0 {
			return best, nil
		}
		for _, score := range tokens {
			if score > best {
				best = score
			}
		}
	}
	return best, fmt.Errorf("%w after %d pages: %s", ErrTooManyPages, f.maxPages, statusURL)
}

func (f *Fetcher) tableScore(ctx context.Context, statusURL string) (int, error) {
	doc, err := f.load(ctx, statusURL)
	if err != nil {
		return 0, err
	}
	best := 0
	doc.Find("td").Each(func(_ int, cell *goquery.Selection) {
		m := fractionPattern.FindStringSubmatch(strings.TrimSpace(cell.Text()))
		if m == nil {
			return
		}
		score, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		if score > best {
			best = score
		}
	})
	return best, nil
}

func (f *Fetcher) load(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := f.getter.Get(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return doc, nil
}

// spanScores collects the numeric score tokens of a status page. Tokens
// without digits are ignored.
func spanScores(doc *goquery.Document) []int {
	var scores []int
	doc.Find("td span").Each(func(_ int, span *goquery.Selection) {
		m := scoreTokenPattern.FindString(strings.TrimSpace(span.Text()))
		if m == "" {
			return
		}
		score, err := strconv.Atoi(m)
		if err != nil {
			return
		}
		scores = append(scores, score)
	})
	return scores
}
