package judge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ojspy/internal/model"
)

const listingHTML = `<html><body><table>
<thead><tr><th>#</th><th>Problem</th><th>Status</th></tr></thead>
<tbody>
<tr><td>1</td><td><a href="/p/1">  문제 1-1 </a></td><td><a href="/index.php/judge/status/7/3/101?uid=2020001">status</a></td></tr>
<tr><td>2</td><td><a href="/p/2">문제 1-2</a></td><td><a href="https://oj.example/index.php/judge/status/7/3/102?uid=2020001&x=1">status</a></td></tr>
<tr><td>only one cell</td></tr>
<tr><td>3</td><td>no link</td><td><a href="/index.php/judge/status/7/3/103?uid=1">status</a></td></tr>
<tr><td>4</td><td><a href="/p/4">no status link</a></td><td>-</td></tr>
<tr><td>5</td><td><a href="/p/5">wrong endpoint</a></td><td><a href="/index.php/judge/submit/7/3/105?uid=1">submit</a></td></tr>
<tr><td>6</td><td><a href="/p/6">no id</a></td><td><a href="/index.php/judge/status/all">status</a></td></tr>
<tr><td>7</td><td><a href="/p/1">문제 1-1</a></td><td><a href="/index.php/judge/status/7/3/101?uid=9">status</a></td></tr>
</tbody></table></body></html>`

func TestExtractCatalog(t *testing.T) {
	pageURL, err := url.Parse("https://oj.example/index.php/judge/problems/7")
	require.NoError(t, err)

	problems, err := ExtractCatalog(strings.NewReader(listingHTML), pageURL, "2020001")
	require.NoError(t, err)

	want := []model.ProblemDescriptor{
		{Name: "문제 1-1", StatusURLTemplate: "https://oj.example/index.php/judge/status/7/3/101?uid=2020001"},
		{Name: "문제 1-2", StatusURLTemplate: "https://oj.example/index.php/judge/status/7/3/102?uid=2020001"},
		{Name: "문제 1-1", StatusURLTemplate: "https://oj.example/index.php/judge/status/7/3/101?uid=2020001"},
	}
	assert.Equal(t, want, problems)

	again, err := ExtractCatalog(strings.NewReader(listingHTML), pageURL, "2020001")
	require.NoError(t, err)
	assert.Equal(t, problems, again)
}

func TestExtractCatalogEmpty(t *testing.T) {
	_, err := ExtractCatalog(strings.NewReader("<table><tbody><tr><td>x</td></tr></tbody></table>"), nil, "1")
	assert.ErrorIs(t, err, ErrCatalogEmpty)
}

func TestProblemDescriptorForStudent(t *testing.T) {
	p := model.ProblemDescriptor{StatusURLTemplate: "https://oj.example/index.php/judge/status/7/3/101?uid=2020001"}
	got, err := p.ForStudent("2020999")
	require.NoError(t, err)
	assert.Equal(t, "https://oj.example/index.php/judge/status/7/3/101?uid=2020999", got)
}

func TestPageURL(t *testing.T) {
	status := "https://oj.example/index.php/judge/status/7/3/101?uid=5"

	first, err := PageURL(status, 1)
	require.NoError(t, err)
	assert.Equal(t, status, first)

	third, err := PageURL(status, 3)
	require.NoError(t, err)
	assert.Equal(t, "https://oj.example/index.php/judge/status/7/3/101/20?uid=5", third)

	offset, err := PageURL("https://oj.example/index.php/judge/status/7/3/101/40?uid=5", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://oj.example/index.php/judge/status/7/3/101/10?uid=5", offset)

	_, err = PageURL("https://oj.example/index.php/judge/status?uid=5", 1)
	assert.ErrorIs(t, err, ErrStatusURL)
}

type fakePages struct {
	pages    map[string]string
	err      error
	requests []string
}

func (f *fakePages) Get(_ context.Context, pageURL string) ([]byte, error) {
	f.requests = append(f.requests, pageURL)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.pages[pageURL]), nil
}

func spanPage(tokens ...string) string {
	var b strings.Builder
	b.WriteString("<table><tbody>")
	for _, tok := range tokens {
		fmt.Fprintf(&b, "<tr><td><span>%s</span></td></tr>", tok)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func TestMaxScorePaged(t *testing.T) {
	base := "https://oj.example/index.php/judge/status/1/2/3"
	pages := &fakePages{pages: map[string]string{
		base + "?uid=9":    spanPage("40", "oops", "55점"),
		base + "/10?uid=9": spanPage("90", "-"),
		base + "/20?uid=9": spanPage("70"),
		base + "/30?uid=9": "<p>no more submissions</p>",
	}}
	f := NewFetcher(pages, FetchPaged, 0)

	score, err := f.MaxScore(context.Background(), base+"?uid=9")
	require.NoError(t, err)
	assert.Equal(t, 90, score)
	assert.Len(t, pages.requests, 4)
}

func TestMaxScorePagedEmptyFirstPage(t *testing.T) {
	pages := &fakePages{pages: map[string]string{}}
	f := NewFetcher(pages, FetchPaged, 0)

	score, err := f.MaxScore(context.Background(), "https://oj.example/judge/status/1/2/3?uid=9")
	require.NoError(t, err)
	assert.Equal(t, 0, score)
	assert.Len(t, pages.requests, 1)
}

func TestMaxScorePagedPageCap(t *testing.T) {
	endless := &endlessPages{}
	f := NewFetcher(endless, FetchPaged, 5)

	score, err := f.MaxScore(context.Background(), "https://oj.example/judge/status/1/2/3?uid=9")
	assert.ErrorIs(t, err, ErrTooManyPages)
	assert.Equal(t, 100, score)
	assert.Equal(t, 5, endless.calls)
}

type endlessPages struct {
	calls int
}

func (e *endlessPages) Get(context.Context, string) ([]byte, error) {
	e.calls++
	return []byte(spanPage("100")), nil
}

func TestMaxScoreFetchError(t *testing.T) {
	pages := &fakePages{err: errors.New("connection reset")}
	f := NewFetcher(pages, FetchPaged, 0)

	_, err := f.MaxScore(context.Background(), "https://oj.example/judge/status/1/2/3?uid=9")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "https://oj.example/judge/status/1/2/3?uid=9", fetchErr.URL)
}

func TestMaxScoreTable(t *testing.T) {
	page := `<table><tbody>
<tr><td>Submission</td><td>30 / 100</td></tr>
<tr><td>Submission</td><td> 80/100 </td></tr>
<tr><td>note</td><td>total / 100</td></tr>
</tbody></table>`
	pages := &fakePages{pages: map[string]string{"https://oj.example/s?uid=1": page}}
	f := NewFetcher(pages, FetchTable, 0)

	score, err := f.MaxScore(context.Background(), "https://oj.example/s?uid=1")
	require.NoError(t, err)
	assert.Equal(t, 80, score)
	assert.Len(t, pages.requests, 1)
}

func TestParseFetchMode(t *testing.T) {
	mode, err := ParseFetchMode("TABLE")
	require.NoError(t, err)
	assert.Equal(t, FetchTable, mode)

	_, err = ParseFetchMode("scroll")
	assert.Error(t, err)
}

func newJudgeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /index.php/auth/authentication", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("id") != "prof" || r.PostForm.Get("password") != "secret" {
			http.Redirect(w, r, "/index.php/auth/login?failed=1", http.StatusSeeOther)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/index.php/judge", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /index.php/judge/status/1/1/1", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "ok" {
			_, _ = w.Write([]byte("<p>please log in</p>"))
			return
		}
		_, _ = w.Write([]byte(spanPage("77")))
	})
	mux.HandleFunc("GET /missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionLogin(t *testing.T) {
	srv := newJudgeServer(t)
	ctx := context.Background()

	s, err := NewSession(WithLoginURL(srv.URL + "/index.php/auth/authentication?returnURL="))
	require.NoError(t, err)

	body, err := s.Get(ctx, srv.URL+"/index.php/judge/status/1/1/1?uid=1")
	require.NoError(t, err)
	assert.Contains(t, string(body), "please log in")

	require.NoError(t, s.Login(ctx, "prof", "secret"))

	body, err = s.Get(ctx, srv.URL+"/index.php/judge/status/1/1/1?uid=1")
	require.NoError(t, err)
	assert.Contains(t, string(body), "77")

	_, err = s.Get(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}

func TestSessionLoginRejected(t *testing.T) {
	srv := newJudgeServer(t)

	s, err := NewSession(WithLoginURL(srv.URL + "/index.php/auth/authentication?returnURL="))
	require.NoError(t, err)

	err = s.Login(context.Background(), "prof", "wrong")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusSeeOther, authErr.Status)
	assert.Contains(t, authErr.Location, "failed=1")
}
