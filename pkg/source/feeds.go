package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/campusmod/modwatch/pkg/content"
)

// Feed is a named RSS/Atom feed URL.
type Feed struct {
	Name string
	URL  string
}

// Feeds collects school announcement feeds so announcement bodies pass
// through the same moderation funnel as discussion content. Entries are
// emitted as post records keyed by feed GUID.
type Feeds struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []Feed
}

// NewFeeds creates a feed collector.
func NewFeeds(feeds []Feed) *Feeds {
	return &Feeds{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
	}
}

func (f *Feeds) Name() SourceType { return SourceFeeds }

// Collect fetches every configured feed. A feed that fails is logged
// and skipped.
func (f *Feeds) Collect(ctx context.Context) ([]content.Record, error) {
	var all []content.Record
	for _, feed := range f.feeds {
		records, err := f.collectFeed(ctx, feed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  feed %s error: %v\n", feed.Name, err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (f *Feeds) collectFeed(ctx context.Context, feed Feed) ([]content.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "modwatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	var records []content.Record
	for _, entry := range parsed.Items {
		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		body := content.Sanitize(entry.Title + " " + entry.Description)
		if id == "" || body == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		records = append(records, content.Record{
			Type:      content.TypePost,
			ID:        id,
			AuthorID:  author,
			Body:      body,
			CreatedAt: published,
		})
	}
	return records, nil
}
