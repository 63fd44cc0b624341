package datasource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/tickersent/internal/headline"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/pkg/models"
)

// RSS turns a per-ticker headline feed into news-table rows. Every item is
// labelled with its absolute publish date and time, so the normalizer never
// needs to carry a date forward for this source.
type RSS struct {
	urlTemplate string
	loc         *time.Location
	parser      *gofeed.Parser
	cache       *infra.Cache[[]models.RawRow]
}

// NewRSS creates an RSS supplier. urlTemplate must contain "{ticker}".
// Publish times are rendered in loc (local time when nil). A cacheTTL <= 0
// disables the feed cache.
func NewRSS(urlTemplate, userAgent string, cacheTTL time.Duration, loc *time.Location) *RSS {
	if loc == nil {
		loc = time.Local
	}
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	return &RSS{
		urlTemplate: urlTemplate,
		loc:         loc,
		parser:      p,
		cache:       infra.NewCache[[]models.RawRow](cacheTTL),
	}
}

// Name returns the data source name.
func (s *RSS) Name() string { return "rss" }

// FeedURL returns the feed URL for ticker.
func (s *RSS) FeedURL(ticker string) string {
	return strings.ReplaceAll(s.urlTemplate, "{ticker}", url.QueryEscape(ticker))
}

// Rows fetches and parses the ticker's feed.
func (s *RSS) Rows(ctx context.Context, ticker string) ([]models.RawRow, error) {
	if cached, ok := s.cache.Get(ticker); ok {
		return cached, nil
	}

	feed, err := s.parser.ParseURLWithContext(s.FeedURL(ticker), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", ticker, err)
	}

	rows := feedRows(ticker, feed, s.loc)
	s.cache.Set(ticker, rows)
	return rows, nil
}

// Cleanup drops expired cached feeds.
func (s *RSS) Cleanup() { s.cache.Cleanup() }

// ParseFeed reads a feed document and converts its items to rows.
func ParseFeed(ticker string, r io.Reader, loc *time.Location) ([]models.RawRow, error) {
	if loc == nil {
		loc = time.Local
	}
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", ticker, err)
	}
	return feedRows(ticker, feed, loc), nil
}

// feedRows keeps feed order and skips items with no publish time or title.
func feedRows(ticker string, feed *gofeed.Feed, loc *time.Location) []models.RawRow {
	rows := make([]models.RawRow, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		title := cleanHTML(item.Title)
		if title == "" {
			continue
		}
		rows = append(rows, models.RawRow{
			Ticker: ticker,
			Label:  headline.FormatLabel(item.PublishedParsed.In(loc)),
			Text:   title,
		})
	}
	return rows
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return collapseSpace(s)
	}
	return collapseSpace(doc.Text())
}
