package rssfeeds

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedEntry is one item of a fetched feed.
type FeedEntry struct {
	Title       string
	URL         string
	Author      string
	Summary     string // HTML from the feed itself
	Categories  []string
	ImageURL    string
	SiteName    string
	PublishedAt *time.Time
}

// FetchFeed retrieves and parses an RSS/Atom feed, returning at most maxCount entries.
func FetchFeed(ctx context.Context, feedURL string, maxCount int) ([]FeedEntry, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return entriesFromFeed(feed, maxCount), nil
}

func entriesFromFeed(feed *gofeed.Feed, maxCount int) []FeedEntry {
	count := len(feed.Items)
	if maxCount > 0 && maxCount < count {
		count = maxCount
	}
	entries := make([]FeedEntry, 0, count)

	for _, item := range feed.Items[:count] {
		// Parse published date
		var publishedAt *time.Time
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = item.UpdatedParsed
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		// Prefer full content over the description
		summary := item.Content
		if summary == "" {
			summary = item.Description
		}

		entry := FeedEntry{
			Title:       item.Title,
			URL:         item.Link,
			Author:      author,
			Summary:     summary,
			Categories:  append([]string(nil), item.Categories...),
			SiteName:    feed.Title,
			PublishedAt: publishedAt,
		}
		if item.Image != nil {
			entry.ImageURL = item.Image.URL
		}
		entries = append(entries, entry)
	}

	return entries
}
