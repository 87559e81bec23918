package library

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"digestbot/types"
)

var ignoreTimestamps = cmpopts.IgnoreFields(types.LibraryItem{}, "CreatedAt", "UpdatedAt")

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *SQLite, items ...types.LibraryItem) []types.LibraryItem {
	t.Helper()
	out := make([]types.LibraryItem, 0, len(items))
	for _, it := range items {
		it := it
		stored, err := s.Upsert(context.Background(), &it)
		if err != nil {
			t.Fatalf("upsert %q: %v", it.Title, err)
		}
		out = append(out, *stored)
	}
	return out
}

func titles(items []types.LibraryItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	published := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	item := types.LibraryItem{
		UserID:          "u1",
		Title:           "Go Generics",
		Slug:            "go-generics",
		OriginalURL:     "https://example.com/generics",
		Labels:          []string{"go", "Tech News"},
		Author:          "Gopher",
		ReadableContent: "<p>hello</p>",
		TextContent:     "hello",
		WordCount:       1,
		PublishedAt:     &published,
	}

	stored, err := s.Upsert(ctx, &item)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.Get(ctx, "u1", stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	want := item
	want.ID = stored.ID
	want.ItemType = types.PageTypeArticle
	want.State = types.StateSucceeded
	want.Folder = types.FolderInbox
	want.SavedAt = fixedNow
	if diff := cmp.Diff(want, *got, ignoreTimestamps); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertConflictKeepsID(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first := seed(t, s, types.LibraryItem{UserID: "u1", Title: "v1", OriginalURL: "https://example.com/a"})[0]
	second := seed(t, s, types.LibraryItem{UserID: "u1", Title: "v2", OriginalURL: "https://example.com/a"})[0]

	if first.ID != second.ID {
		t.Errorf("conflicting upsert changed id: %s -> %s", first.ID, second.ID)
	}
	if second.Title != "v2" {
		t.Errorf("title not updated: %q", second.Title)
	}

	other := seed(t, s, types.LibraryItem{UserID: "u2", Title: "v1", OriginalURL: "https://example.com/a"})[0]
	if other.ID == first.ID {
		t.Error("same url for another user must be a separate item")
	}

	all, err := s.Search(ctx, "u1", types.SearchOptions{Query: "in:all"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 item for u1, got %d", len(all))
	}
}

func TestUpsertRejectsIncompleteItem(t *testing.T) {
	s := newTestDB(t)
	if _, err := s.Upsert(context.Background(), &types.LibraryItem{UserID: "u1"}); err == nil {
		t.Fatal("expected error for missing original url")
	}
	if _, err := s.Upsert(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil item")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestDB(t)
	stored := seed(t, s, types.LibraryItem{UserID: "u1", Title: "a", OriginalURL: "https://example.com/a"})[0]

	if _, err := s.Get(context.Background(), "u2", stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := s.Get(context.Background(), "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }
	archived := day(14)

	seed(t, s,
		types.LibraryItem{UserID: "u1", Title: "Alpha", OriginalURL: "https://e.com/1", SavedAt: day(1), Labels: []string{"go"}, TextContent: "channels and goroutines"},
		types.LibraryItem{UserID: "u1", Title: "Bravo", OriginalURL: "https://e.com/2", SavedAt: day(10), ReadingProgress: 100},
		types.LibraryItem{UserID: "u1", Title: "Charlie", OriginalURL: "https://e.com/3", SavedAt: day(12), ArchivedAt: &archived, Labels: []string{"rust"}},
		types.LibraryItem{UserID: "u1", Title: "Delta", OriginalURL: "https://e.com/4", SavedAt: day(13), State: types.StateProcessing},
		types.LibraryItem{UserID: "u1", Title: "Echo", OriginalURL: "https://e.com/5", SavedAt: day(14), State: types.StateDeleted},
		types.LibraryItem{UserID: "u1", Title: "Foxtrot", OriginalURL: "https://e.com/6", SavedAt: day(11), Folder: types.FolderFollowing, ItemType: types.PageTypeFile},
		types.LibraryItem{UserID: "u2", Title: "Other user", OriginalURL: "https://e.com/7", SavedAt: day(14)},
	)

	tests := []struct {
		name string
		opts types.SearchOptions
		want []string
	}{
		{name: "default excludes pending and deleted", opts: types.SearchOptions{}, want: []string{"Charlie", "Foxtrot", "Bravo", "Alpha"}},
		{name: "include pending", opts: types.SearchOptions{IncludePending: true}, want: []string{"Delta", "Charlie", "Foxtrot", "Bravo", "Alpha"}},
		{name: "include deleted", opts: types.SearchOptions{IncludeDeleted: true}, want: []string{"Echo", "Charlie", "Foxtrot", "Bravo", "Alpha"}},
		{name: "limit and offset", opts: types.SearchOptions{Limit: 2, Offset: 1}, want: []string{"Foxtrot", "Bravo"}},
		{name: "offset without limit", opts: types.SearchOptions{Offset: 3}, want: []string{"Alpha"}},
		{name: "inbox excludes archived", opts: types.SearchOptions{Query: "in:inbox"}, want: []string{"Foxtrot", "Bravo", "Alpha"}},
		{name: "inbox with folders", opts: types.SearchOptions{Query: "in:inbox", UseFolders: true}, want: []string{"Bravo", "Alpha"}},
		{name: "folders default scope", opts: types.SearchOptions{UseFolders: true}, want: []string{"Charlie", "Bravo", "Alpha"}},
		{name: "following", opts: types.SearchOptions{Query: "in:following"}, want: []string{"Foxtrot"}},
		{name: "archive", opts: types.SearchOptions{Query: "in:archive"}, want: []string{"Charlie"}},
		{name: "read", opts: types.SearchOptions{Query: "is:read"}, want: []string{"Bravo"}},
		{name: "unread", opts: types.SearchOptions{Query: "is:unread sort:title-asc"}, want: []string{"Alpha", "Charlie", "Foxtrot"}},
		{name: "label", opts: types.SearchOptions{Query: "label:GO"}, want: []string{"Alpha"}},
		{name: "type", opts: types.SearchOptions{Query: "type:file"}, want: []string{"Foxtrot"}},
		{name: "saved range", opts: types.SearchOptions{Query: "saved:2024-03-10..2024-03-11"}, want: []string{"Foxtrot", "Bravo"}},
		{name: "saved open start", opts: types.SearchOptions{Query: "saved:*..2024-03-01"}, want: []string{"Alpha"}},
		{name: "saved last days", opts: types.SearchOptions{Query: "saved:5d"}, want: []string{"Charlie", "Foxtrot"}},
		{name: "free text", opts: types.SearchOptions{Query: "goroutines"}, want: []string{"Alpha"}},
		{name: "free text AND", opts: types.SearchOptions{Query: "alpha goroutines"}, want: []string{"Alpha"}},
		{name: "free text no match", opts: types.SearchOptions{Query: "alpha bravo"}, want: []string{}},
		{name: "sort saved asc", opts: types.SearchOptions{Query: "sort:saved-asc", Limit: 2}, want: []string{"Alpha", "Bravo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, "u1", tt.opts)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if diff := cmp.Diff(tt.want, titles(got)); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.opts.Query, diff)
			}
		})
	}
}

func TestSearchContentColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, types.LibraryItem{
		UserID: "u1", Title: "a", OriginalURL: "https://e.com/a",
		ReadableContent: "<p>body</p>", TextContent: "body", Markdown: "body",
	})

	got, err := s.Search(ctx, "u1", types.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].ReadableContent != "" || got[0].TextContent != "" || got[0].Markdown != "" {
		t.Errorf("content columns should be blank without IncludeContent: %+v", got[0])
	}

	got, err = s.Search(ctx, "u1", types.SearchOptions{IncludeContent: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].ReadableContent != "<p>body</p>" {
		t.Errorf("expected readable content, got %q", got[0].ReadableContent)
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	s := newTestDB(t)
	_, err := s.Search(context.Background(), "u1", types.SearchOptions{Query: "saved:yesterday..today"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestUpsertSuffixesDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	items := seed(t, s,
		types.LibraryItem{UserID: "u1", Title: "Digest", Slug: "your-daily-digest", OriginalURL: "https://app.test/me/digest?q=1"},
		types.LibraryItem{UserID: "u1", Title: "Digest", Slug: "your-daily-digest", OriginalURL: "https://app.test/me/digest?q=2"},
		types.LibraryItem{UserID: "u1", Title: "Digest", Slug: "your-daily-digest", OriginalURL: "https://app.test/me/digest?q=3"},
		types.LibraryItem{UserID: "u2", Title: "Digest", Slug: "your-daily-digest", OriginalURL: "https://app.test/me/digest?q=4"},
	)

	var slugs []string
	for _, it := range items {
		slugs = append(slugs, it.Slug)
	}
	want := []string{"your-daily-digest", "your-daily-digest-2", "your-daily-digest-3", "your-daily-digest"}
	if diff := cmp.Diff(want, slugs); diff != "" {
		t.Errorf("slugs mismatch (-want +got):\n%s", diff)
	}

	again, err := s.Upsert(ctx, &types.LibraryItem{UserID: "u1", Title: "Digest v2", Slug: "your-daily-digest", OriginalURL: "https://app.test/me/digest?q=1"})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if again.Slug != "your-daily-digest" || again.ID != items[0].ID {
		t.Errorf("re-saving the same url changed slug or id: %+v", again)
	}
}

func TestWithSuffixKeepsMaxLength(t *testing.T) {
	long := strings.Repeat("a", 60) + "-bcd"
	got := withSuffix(long, "-12")
	if len(got) > 64 {
		t.Errorf("slug too long (%d): %q", len(got), got)
	}
	if got != strings.Repeat("a", 60)+"-12" {
		t.Errorf("unexpected slug %q", got)
	}
	if got := withSuffix("short", "-2"); got != "short-2" {
		t.Errorf("unexpected slug %q", got)
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s,
		types.LibraryItem{UserID: "u1", Title: "100% Go", OriginalURL: "https://e.com/1"},
		types.LibraryItem{UserID: "u1", Title: "1000 Go tips", OriginalURL: "https://e.com/2"},
		types.LibraryItem{UserID: "u1", Title: "snake_case", OriginalURL: "https://e.com/3"},
		types.LibraryItem{UserID: "u1", Title: "snakeXcase", OriginalURL: "https://e.com/4"},
		types.LibraryItem{UserID: "u1", Title: `back\slash`, OriginalURL: "https://e.com/5"},
		types.LibraryItem{UserID: "u1", Title: "tagged", OriginalURL: "https://e.com/6", Labels: []string{"a_b"}},
		types.LibraryItem{UserID: "u1", Title: "other tag", OriginalURL: "https://e.com/7", Labels: []string{"axb"}},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "100%", want: []string{"100% Go"}},
		{query: "snake_case", want: []string{"snake_case"}},
		{query: `back\slash`, want: []string{`back\slash`}},
		{query: "label:a_b", want: []string{"tagged"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.Search(ctx, "u1", types.SearchOptions{Query: tt.query})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			var titles []string
			for _, it := range got {
				titles = append(titles, it.Title)
			}
			if diff := cmp.Diff(tt.want, titles); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
