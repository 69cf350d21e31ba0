package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/campusmod/modwatch/pkg/content"
)

// Discussion collects posts and comments from the external discussion
// API, one topic view per configured topic ID.
type Discussion struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	token   string
	topics  []string
}

// NewDiscussion creates a discussion collector. rps caps topic requests
// per second; zero means 2.
func NewDiscussion(baseURL, token string, topics []string, rps float64) *Discussion {
	if rps <= 0 {
		rps = 2
	}
	return &Discussion{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		baseURL: baseURL,
		token:   token,
		topics:  topics,
	}
}

func (d *Discussion) Name() SourceType { return SourceDiscussion }

// Collect fetches every configured topic view. A topic whose request or
// payload fails is logged and skipped; the remaining topics still run.
func (d *Discussion) Collect(ctx context.Context) ([]content.Record, error) {
	var all []content.Record
	for _, topic := range d.topics {
		records, err := d.fetchTopic(ctx, topic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  topic %s error: %v\n", topic, err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (d *Discussion) fetchTopic(ctx context.Context, topic string) ([]content.Record, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/topics/%s/view", d.baseURL, url.PathEscape(topic))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create topic request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("User-Agent", "modwatch/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch topic %s: %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("topic %s status %d", topic, resp.StatusCode)
	}

	var view topicView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode topic %s: %w", topic, err)
	}

	var records []content.Record
	for _, entry := range view.View {
		// Without a post id there is no parent key for the replies
		// either; with one, replies survive even when the post body
		// sanitizes to nothing (image-only posts).
		if entry.ID == "" {
			continue
		}
		if post, ok := toRecord(entry, content.TypePost, ""); ok {
			records = append(records, post)
		}
		for _, reply := range entry.Replies {
			if comment, ok := toRecord(reply, content.TypeComment, entry.ID); ok {
				records = append(records, comment)
			}
		}
	}
	return records, nil
}

// toRecord converts one view entry. Entries with an empty identifier or
// an empty sanitized body are dropped.
func toRecord(e viewEntry, typ content.Type, parentID string) (content.Record, bool) {
	if e.ID == "" {
		return content.Record{}, false
	}
	body := content.Sanitize(e.Message)
	if body == "" {
		return content.Record{}, false
	}

	created := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
		created = t.UTC()
	}

	return content.Record{
		Type:      typ,
		ID:        e.ID,
		ParentID:  parentID,
		AuthorID:  e.AuthorID,
		Body:      body,
		CreatedAt: created,
	}, true
}

type topicView struct {
	View []viewEntry `json:"view"`
}

type viewEntry struct {
	ID        string      `json:"id"`
	AuthorID  string      `json:"author_id"`
	Message   string      `json:"message"`
	CreatedAt string      `json:"created_at"`
	Replies   []viewEntry `json:"replies"`
}
