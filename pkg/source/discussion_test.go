package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusmod/modwatch/pkg/content"
)

func TestDiscussionCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		switch r.URL.Path {
		case "/topics/t1/view":
			w.Write([]byte(`{"view": [
				{
					"id": "p1",
					"author_id": "u1",
					"message": "<p>Hello &amp; welcome</p>",
					"created_at": "2026-03-01T12:00:00Z",
					"replies": [
						{"id": "c1", "author_id": "u2", "message": "reply one"},
						{"id": "", "author_id": "u3", "message": "no identifier"},
						{"id": "c2", "author_id": "u4", "message": "<img src=x>"}
					]
				},
				{"id": "p2", "author_id": "u5", "message": "second post"}
			]}`))
		case "/topics/t2/view":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDiscussion(srv.URL, "token-1", []string{"t1", "t2"}, 100)
	records, err := d.Collect(context.Background())
	if err != nil {
		t.Fatalf("a failing topic must not fail the collect: %v", err)
	}

	// p1, its one usable reply, and p2. The reply without an id and
	// the reply whose sanitized body is empty are dropped.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}

	post := records[0]
	if post.Type != content.TypePost || post.ID != "p1" {
		t.Fatalf("unexpected first record: %+v", post)
	}
	if post.Body != "Hello & welcome" {
		t.Fatalf("body must be sanitized, got %q", post.Body)
	}
	if post.CreatedAt.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("created_at not parsed: %v", post.CreatedAt)
	}

	comment := records[1]
	if comment.Type != content.TypeComment || comment.ID != "c1" {
		t.Fatalf("unexpected second record: %+v", comment)
	}
	if comment.ParentID != "p1" {
		t.Fatalf("reply must carry its post id, got %q", comment.ParentID)
	}

	if records[2].ID != "p2" || records[2].Type != content.TypePost {
		t.Fatalf("unexpected third record: %+v", records[2])
	}
}

func TestDiscussionCollectRepliesSurviveEmptyPostBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"view": [
			{
				"id": "p1",
				"author_id": "u1",
				"message": "<img src=x>",
				"replies": [
					{"id": "c1", "author_id": "u2", "message": "look at this"}
				]
			},
			{
				"id": "",
				"author_id": "u3",
				"message": "orphaned",
				"replies": [
					{"id": "c2", "author_id": "u4", "message": "no parent key"}
				]
			}
		]}`))
	}))
	defer srv.Close()

	d := NewDiscussion(srv.URL, "token-1", []string{"t1"}, 100)
	records, err := d.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	// The image-only post yields no record itself, but its reply does,
	// keyed to the post. The post with no id drops with its replies.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(records), records)
	}
	if records[0].Type != content.TypeComment || records[0].ID != "c1" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].ParentID != "p1" {
		t.Fatalf("reply must carry its post id, got %q", records[0].ParentID)
	}
}

func TestDiscussionCollectAllTopicsFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDiscussion(srv.URL, "token-1", []string{"t1", "t2"}, 100)
	records, err := d.Collect(context.Background())
	if err != nil {
		t.Fatalf("topic failures are logged, not returned: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
