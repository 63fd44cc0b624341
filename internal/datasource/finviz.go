package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/pkg/models"
)

// newsTableSelector matches both news-table markups FinViz has served.
const newsTableSelector = "#news-table, table.fullview-news-outer"

const quoteLinkMarker = "quote.ashx?t="

// screenerPageSize is the number of rows per page of the overview screener.
const screenerPageSize = 20

// FinVizOptions configures a FinViz supplier. Zero values take defaults.
type FinVizOptions struct {
	QuoteURL       string // ticker is appended
	NewsURL        string
	ScreenerURL    string // overview screener, e.g. screener.ashx?v=111
	ScreenMaxPages int
	UserAgent      string
	Timeout        time.Duration
	CacheTTL       time.Duration // <= 0 disables the row cache
	Location       *time.Location
	Client         *http.Client
}

// FinViz scrapes per-ticker news tables from finviz.com quote pages.
//
// Quote pages label rows relative to the day they were served ("Today",
// bare times), so cached rows never outlive the calendar day in Location.
type FinViz struct {
	quoteURL    string
	newsURL     string
	screenerURL string
	maxPages    int
	userAgent   string
	client      *http.Client
	cacheTTL    time.Duration
	loc         *time.Location
	now         func() time.Time
	cache       *infra.Cache[[]models.RawRow]
}

// NewFinViz creates a FinViz supplier.
func NewFinViz(opts FinVizOptions) *FinViz {
	f := &FinViz{
		quoteURL:    opts.QuoteURL,
		newsURL:     opts.NewsURL,
		screenerURL: opts.ScreenerURL,
		maxPages:    opts.ScreenMaxPages,
		userAgent:   opts.UserAgent,
		client:      opts.Client,
		cacheTTL:    opts.CacheTTL,
		loc:         opts.Location,
		now:         time.Now,
		cache:       infra.NewCache[[]models.RawRow](opts.CacheTTL),
	}
	if f.quoteURL == "" {
		f.quoteURL = "https://finviz.com/quote.ashx?t="
	}
	if f.newsURL == "" {
		f.newsURL = "https://finviz.com/news.ashx?v=3"
	}
	if f.screenerURL == "" {
		f.screenerURL = "https://finviz.com/screener.ashx?v=111"
	}
	if f.maxPages <= 0 {
		f.maxPages = 10
	}
	if f.loc == nil {
		f.loc = time.Local
	}
	if f.client == nil {
		f.client = newHTTPClient(opts.Timeout)
	}
	return f
}

// Name returns the data source name.
func (f *FinViz) Name() string { return "finviz" }

// Rows fetches the ticker's quote page and parses its news table.
func (f *FinViz) Rows(ctx context.Context, ticker string) ([]models.RawRow, error) {
	if cached, ok := f.cache.Get(ticker); ok {
		return cached, nil
	}

	body, err := doGet(ctx, f.client, f.quoteURL+ticker, f.userAgent)
	if err != nil {
		return nil, fmt.Errorf("finviz %s: %w", ticker, err)
	}
	defer body.Close()

	rows, err := ParseNewsTable(ticker, body)
	if err != nil {
		return nil, fmt.Errorf("finviz %s: %w", ticker, err)
	}

	f.cache.SetWithTTL(ticker, rows, f.rowTTL())
	return rows, nil
}

// rowTTL is the cache TTL capped at the next midnight in f.loc.
func (f *FinViz) rowTTL() time.Duration {
	if f.cacheTTL <= 0 {
		return 0
	}
	now := f.now().In(f.loc)
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, f.loc)
	return min(f.cacheTTL, midnight.Sub(now))
}

// Cleanup drops expired cached rows.
func (f *FinViz) Cleanup() { f.cache.Cleanup() }

// DiscoverTickers collects the tickers linked from the FinViz news page.
func (f *FinViz) DiscoverTickers(ctx context.Context) ([]string, error) {
	body, err := doGet(ctx, f.client, f.newsURL, f.userAgent)
	if err != nil {
		return nil, fmt.Errorf("finviz news: %w", err)
	}
	defer body.Close()
	return ParseTickerLinks(body)
}

// ScreenTickers runs the overview screener with the given filters (e.g.
// "cap_large", "sector_technology") and returns the matching tickers in
// screener order. Pages are followed until a short page, a page with no new
// tickers, or the page limit.
func (f *FinViz) ScreenTickers(ctx context.Context, filters ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var tickers []string
	for page := 0; page < f.maxPages; page++ {
		u, err := f.ScreenerPageURL(filters, 1+page*screenerPageSize)
		if err != nil {
			return nil, err
		}
		body, err := doGet(ctx, f.client, u, f.userAgent)
		if err != nil {
			return nil, fmt.Errorf("finviz screener: %w", err)
		}
		found, err := ParseScreener(body)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("finviz screener: %w", err)
		}

		added := 0
		for _, t := range found {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tickers = append(tickers, t)
			added++
		}
		if len(found) < screenerPageSize || added == 0 {
			break
		}
	}
	return tickers, nil
}

// ScreenerPageURL builds the screener URL for filters starting at row
// (1-based).
func (f *FinViz) ScreenerPageURL(filters []string, row int) (string, error) {
	u, err := url.Parse(f.screenerURL)
	if err != nil {
		return "", fmt.Errorf("screener url: %w", err)
	}
	q := u.Query()
	var fs []string
	for _, flt := range filters {
		if flt = strings.TrimSpace(flt); flt != "" {
			fs = append(fs, flt)
		}
	}
	if len(fs) > 0 {
		q.Set("f", strings.Join(fs, ","))
	}
	if row > 1 {
		q.Set("r", strconv.Itoa(row))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseScreener returns the tickers listed on a screener results page, in
// page order. Ticker cells are recognised by the screener's primary link
// class; older markup falls back to every quote link inside a table.
func ParseScreener(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	links := doc.Find("a.screener-link-primary")
	if links.Length() == 0 {
		links = doc.Find(`table a[href*="quote.ashx?t="]`)
	}

	seen := make(map[string]struct{})
	var tickers []string
	links.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		t := tickerFromHref(href)
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		tickers = append(tickers, t)
	})
	return tickers, nil
}

// ParseNewsTable extracts (label, headline) rows from a FinViz quote page.
// Rows with fewer than two cells, an empty label or an empty headline are
// skipped; markup order is preserved.
func ParseNewsTable(ticker string, r io.Reader) ([]models.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	table := doc.Find(newsTableSelector).First()
	if table.Length() == 0 {
		return nil, ErrNoNewsTable
	}

	var rows []models.RawRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}

		label := collapseSpace(cells.Eq(0).Text())
		headline := cells.Eq(1)
		text := collapseSpace(headline.Find("a").First().Text())
		if text == "" {
			text = collapseSpace(headline.Text())
		}
		if label == "" || text == "" {
			return
		}

		rows = append(rows, models.RawRow{Ticker: ticker, Label: label, Text: text})
	})
	return rows, nil
}

// ParseTickerLinks returns the distinct, upper-cased tickers referenced by
// quote.ashx?t= links, sorted.
func ParseTickerLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if t := tickerFromHref(href); t != "" {
			seen[t] = struct{}{}
		}
	})

	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// tickerFromHref extracts the upper-cased ticker from a quote.ashx?t= link.
func tickerFromHref(href string) string {
	_, after, ok := strings.Cut(href, quoteLinkMarker)
	if !ok {
		return ""
	}
	t, _, _ := strings.Cut(after, "&")
	t, _, _ = strings.Cut(t, "#")
	return strings.ToUpper(strings.TrimSpace(t))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
