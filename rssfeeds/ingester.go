// Package rssfeeds fills users' libraries from RSS and Atom feeds.
package rssfeeds

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"digestbot/content"
	"digestbot/types"
)

// DefaultCount is how many feed entries are ingested when no count is given.
const DefaultCount = 10

// Saver persists library items.
type Saver interface {
	Upsert(ctx context.Context, item *types.LibraryItem) (*types.LibraryItem, error)
}

// Result summarizes one ingest run.
type Result struct {
	FeedURL string   `json:"feed_url"`
	Fetched int      `json:"fetched"`
	Saved   int      `json:"saved"`
	Failed  int      `json:"failed"`
	ItemIDs []string `json:"item_ids"`
}

// Ingester fetches feeds and saves their entries into a user's library.
type Ingester struct {
	saver     Saver
	fetchFeed func(ctx context.Context, feedURL string, maxCount int) ([]FeedEntry, error)
	fetchPage PageFetcher
	now       func() time.Time
	logger    *zap.Logger
}

// NewIngester returns an Ingester saving through saver.
func NewIngester(saver Saver, logger *zap.Logger) *Ingester {
	return &Ingester{
		saver:     saver,
		fetchFeed: FetchFeed,
		fetchPage: HTTPPageFetcher(&http.Client{Timeout: extractorTimeout}),
		now:       time.Now,
		logger:    logger.With(zap.String("component", "ingester")),
	}
}

// Ingest fetches up to count entries of feed and upserts them for userID.
// feed may be a preset name or a URL. Per-entry failures are logged and
// counted in the result; only a feed failure is returned as an error.
func (in *Ingester) Ingest(ctx context.Context, userID, feed string, count int) (Result, error) {
	if userID == "" {
		return Result{}, errors.New("user id is required")
	}
	if count <= 0 {
		count = DefaultCount
	}
	feedURL := ResolveFeedURL(feed)
	logger := in.logger.With(zap.String("user_id", userID), zap.String("feed", feedURL))

	entries, err := in.fetchFeed(ctx, feedURL, count)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Fetched feed", zap.Int("entries", len(entries)))

	res := Result{FeedURL: feedURL, Fetched: len(entries), ItemIDs: []string{}}
	for _, ex := range extractAll(ctx, entries, in.fetchPage, logger) {
		if ex.err != nil {
			res.Failed++
			continue
		}

		saved, err := in.saver.Upsert(ctx, in.toLibraryItem(userID, ex.entry, ex.parsed))
		if err != nil {
			logger.Error("Failed to save entry", zap.String("url", ex.entry.URL), zap.Error(err))
			res.Failed++
			continue
		}
		res.Saved++
		res.ItemIDs = append(res.ItemIDs, saved.ID)
	}

	logger.Info("Ingested feed", zap.Int("saved", res.Saved), zap.Int("failed", res.Failed))
	return res, nil
}

func (in *Ingester) toLibraryItem(userID string, entry FeedEntry, parsed types.ParsedContent) *types.LibraryItem {
	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = entry.URL
	}
	return &types.LibraryItem{
		UserID:          userID,
		Title:           title,
		Slug:            content.Slugify(title),
		OriginalURL:     entry.URL,
		ItemType:        types.PageTypeArticle,
		State:           types.StateSucceeded,
		Folder:          types.FolderInbox,
		Labels:          entry.Categories,
		Author:          parsed.Byline,
		Description:     parsed.Excerpt,
		SiteName:        parsed.SiteName,
		ReadableContent: parsed.Content,
		TextContent:     parsed.TextContent,
		Markdown:        parsed.Markdown,
		WordCount:       parsed.WordCount,
		PublishedAt:     parsed.PublishedAt,
		SavedAt:         in.now(),
	}
}
