package collect

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

const maxPerFeed = 50

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL     string
	Title   string
	Content string
	Source  string
	Genre   string
}

// FeedConfig represents a single feed configuration. Genre, when set,
// applies to every entry; otherwise it is taken from the item categories.
type FeedConfig struct {
	URL   string
	Name  string
	Genre string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, logger *slog.Logger) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser(), logger: logger}
}

// ParseAll parses all configured feeds. Feeds that fail are logged and
// skipped.
func (fp *FeedParser) ParseAll(ctx context.Context) []FeedEntry {
	var all []FeedEntry
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			fp.logger.Warn("failed to parse feed", "url", fc.URL, "error", err)
			continue
		}

		entries := parseItems(feed.Items, name, fc.Genre)
		all = append(all, entries...)
		fp.logger.Info("parsed feed", "source", name, "entries", len(entries))
	}
	return all
}

func parseItems(items []*gofeed.Item, source, genre string) []FeedEntry {
	var entries []FeedEntry
	for _, item := range items {
		if len(entries) >= maxPerFeed {
			break
		}
		if entry := parseItem(item, source, genre); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

func parseItem(item *gofeed.Item, source, genre string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	if genre == "" {
		genre = genreFromCategories(item.Categories)
	}
	if genre == "" {
		return nil
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:     itemURL,
		Title:   strings.TrimSpace(item.Title),
		Content: content,
		Source:  source,
		Genre:   genre,
	}
}

// genreFromCategories returns the first known genre named by a category.
func genreFromCategories(categories []string) string {
	for _, c := range categories {
		c = strings.ToLower(c)
		for _, g := range lyrics.Genres {
			if strings.Contains(c, g) {
				return g
			}
		}
	}
	return ""
}

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>`)
	paragraphTag = regexp.MustCompile(`(?i)<p[^>]*>`)
	anyTag       = regexp.MustCompile(`<[^>]*>`)
)

// stripHTML removes markup but keeps line and stanza breaks.
func stripHTML(text string) string {
	s := lineBreakTag.ReplaceAllString(text, "\n")
	s = paragraphTag.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")

	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return normalizeLines(s)
}

// normalizeLines collapses spaces within lines and runs of blank lines.
func normalizeLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
