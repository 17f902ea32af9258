package judge

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/verte-zerg/ojspy/internal/model"
)

const statusPathMarker = "judge/status"

var statusIDPattern = regexp.MustCompile(`/(\d+)\?` + model.StudentQueryKey + `=`)

// ExtractCatalog reads the problem table of a listing page. Rows that do not
// look like a problem row are skipped. pageURL resolves relative links and
// sampleStudent fills the student slot of each status URL template.
func ExtractCatalog(r io.Reader, pageURL *url.URL, sampleStudent string) ([]model.ProblemDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var problems []model.ProblemDescriptor
	doc.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		nameLink := cells.Eq(1).Find("a").First()
		if nameLink.Length() == 0 {
			return
		}
		name := strings.TrimSpace(nameLink.Text())

		href, ok := cells.Last().Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		if !strings.Contains(href, statusPathMarker) || !statusIDPattern.MatchString(href) {
			return
		}

		template, err := statusTemplate(pageURL, href, sampleStudent)
		if err != nil {
			return
		}
		problems = append(problems, model.ProblemDescriptor{
			Name:              name,
			StatusURLTemplate: template,
		})
	})

	if len(problems) == 0 {
		return nil, ErrCatalogEmpty
	}
	return problems, nil
}

func statusTemplate(pageURL *url.URL, href, student string) (string, error) {
	base, _, _ := strings.Cut(href, "?")
	ref, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u := ref
	if pageURL != nil {
		u = pageURL.ResolveReference(ref)
	}
	q := url.Values{}
	q.Set(model.StudentQueryKey, student)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}
