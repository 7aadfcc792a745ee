// Package feeds pulls candidate articles from configured RSS sources.
// Feed failures never fail a fetch as a whole: unreachable sources and
// malformed entries are logged and dropped.
package feeds

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"

	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/trace"
	"financial-news-intelligence/internal/types"
)

// maxFullTextChars caps scraped article bodies.
const maxFullTextChars = 5000

// Source names one RSS feed.
type Source struct {
	Name string
	URL  string
}

// Fetcher parses the configured feeds into candidates.
type Fetcher struct {
	sources []Source
	parser  *gofeed.Parser
	timeout time.Duration
}

var _ interfaces.CandidateSource = (*Fetcher)(nil)

// New builds a fetcher over the given sources.
func New(sources []Source) *Fetcher {
	return &Fetcher{
		sources: sources,
		parser:  gofeed.NewParser(),
		timeout: 20 * time.Second,
	}
}

// Fetch pulls up to perFeedLimit entries from every source. Entries without a
// title, link or any content are dropped.
func (f *Fetcher) Fetch(ctx context.Context, perFeedLimit int) []types.Candidate {
	ctx, span := trace.StartSpan(ctx, "fetch-feeds")
	defer span.End()

	var all []types.Candidate
	for _, src := range f.sources {
		items, err := f.fetchSource(ctx, src, perFeedLimit)
		if err != nil {
			logger.ErrorWithErr(ctx, "Feed fetch failed", err, "feed", src.Name, "url", src.URL)
			continue
		}
		all = append(all, items...)
	}

	logger.Info(ctx, "Feed fetch completed", "feeds", len(f.sources), "candidates", len(all))
	return all
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source, limit int) ([]types.Candidate, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(src.URL, fetchCtx)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]types.Candidate, 0, len(items))
	for _, item := range items {
		c, ok := candidateFromItem(src.Name, item)
		if !ok {
			logger.Debug(ctx, "Dropping incomplete feed entry", "feed", src.Name, "title", item.Title)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// candidateFromItem maps one feed entry to a candidate. The summary field is
// preferred over the full content block; both are stripped of markup.
func candidateFromItem(sourceName string, item *gofeed.Item) (types.Candidate, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)

	content := cleanHTML(item.Description)
	if content == "" {
		content = cleanHTML(item.Content)
	}

	if title == "" || link == "" || content == "" {
		return types.Candidate{}, false
	}

	return types.Candidate{
		Title:       title,
		Source:      sourceName,
		URL:         link,
		Content:     content,
		PublishedAt: publishedTime(item),
	}, true
}

// publishedTime resolves the entry timestamp, falling back to the fetch time
// when the feed gives none that parses.
func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// cleanHTML strips markup from a feed field using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

var spaceRE = regexp.MustCompile(`\s+`)

// FetchFullText scrapes the article body at url, with script and style blocks
// removed and whitespace collapsed. Any failure yields an empty string so the
// caller falls back to the feed summary.
func (f *Fetcher) FetchFullText(ctx context.Context, url string) string {
	c := colly.NewCollector()
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var text string
	c.OnHTML("body", func(e *colly.HTMLElement) {
		dom := e.DOM.Clone()
		dom.Find("script, style, noscript").Remove()
		text = spaceRE.ReplaceAllString(strings.TrimSpace(dom.Text()), " ")
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn(ctx, "Full text fetch failed", "url", url, "error", err)
	})

	if err := c.Visit(url); err != nil {
		logger.Warn(ctx, "Full text fetch failed", "url", url, "error", err)
		return ""
	}
	c.Wait()

	runes := []rune(text)
	if len(runes) > maxFullTextChars {
		return string(runes[:maxFullTextChars])
	}
	return text
}
