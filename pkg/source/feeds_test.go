package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusmod/modwatch/pkg/content"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Announcements</title>
    <item>
      <title>Spring break schedule</title>
      <link>https://example.edu/news/1</link>
      <guid>news-1</guid>
      <description>&lt;p&gt;Classes resume on &lt;b&gt;Monday&lt;/b&gt;&lt;/p&gt;</description>
      <pubDate>Sun, 01 Mar 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.edu/news/2</link>
      <guid>news-2</guid>
      <description></description>
    </item>
  </channel>
</rss>`

func TestFeedsCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/announcements.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(sampleRSS))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFeeds([]Feed{
		{Name: "announcements", URL: srv.URL + "/announcements.xml"},
		{Name: "broken", URL: srv.URL + "/missing.xml"},
	})
	records, err := f.Collect(context.Background())
	if err != nil {
		t.Fatalf("a failing feed must not fail the collect: %v", err)
	}

	// The second item has no usable body and is dropped.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(records), records)
	}
	rec := records[0]
	if rec.Type != content.TypePost || rec.ID != "news-1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Body != "Spring break schedule Classes resume on Monday" {
		t.Fatalf("body must be sanitized, got %q", rec.Body)
	}
	if rec.CreatedAt.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("publish time not parsed: %v", rec.CreatedAt)
	}
}
