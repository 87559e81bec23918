package rssfeeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"digestbot/content"
	"digestbot/types"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
	maxPageSize      = 5 << 20
)

// PageFetcher returns the raw HTML of a page.
type PageFetcher func(ctx context.Context, pageURL string) (string, error)

// HTTPPageFetcher fetches pages with client.
func HTTPPageFetcher(client *http.Client) PageFetcher {
	return func(ctx context.Context, pageURL string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("User-Agent", "digestbot/1.0 (+feed ingester)")

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("fetch page: %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return "", fmt.Errorf("read page: %w", err)
		}
		return string(body), nil
	}
}

// extraction is the outcome for one feed entry.
type extraction struct {
	entry  FeedEntry
	parsed types.ParsedContent
	err    error
}

// extractAll parses every entry using a pool of WorkerCount workers. Results
// keep the order of entries.
func extractAll(ctx context.Context, entries []FeedEntry, fetch PageFetcher, logger *zap.Logger) []extraction {
	results := make([]extraction, len(entries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < WorkerCount; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				parsed, err := extractEntry(ctx, entries[i], fetch, logger)
				if err != nil {
					logger.Warn("Failed to extract entry", zap.Int("worker", workerID), zap.String("url", entries[i].URL), zap.Error(err))
				}
				results[i] = extraction{entry: entries[i], parsed: parsed, err: err}
			}
		}(w)
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// extractEntry parses the linked page, falling back to the feed's own HTML
// when the page can't be fetched or isn't readable.
func extractEntry(ctx context.Context, entry FeedEntry, fetch PageFetcher, logger *zap.Logger) (types.ParsedContent, error) {
	if entry.URL == "" {
		return types.ParsedContent{}, errors.New("entry URL is empty")
	}

	info := types.PageInfo{
		Title:        entry.Title,
		Author:       entry.Author,
		SiteName:     entry.SiteName,
		CanonicalURL: entry.URL,
		PublishedAt:  entry.PublishedAt,
	}

	pageCtx, cancel := context.WithTimeout(ctx, extractorTimeout)
	page, err := fetch(pageCtx, entry.URL)
	cancel()
	if err == nil {
		parsed, perr := content.ParsePreparedContent(entry.URL, types.PreparedDocument{Document: page, PageInfo: info}, false)
		if perr == nil {
			return parsed, nil
		}
		err = perr
	}

	if entry.Summary == "" {
		return types.ParsedContent{}, fmt.Errorf("extract %s: %w", entry.URL, err)
	}
	logger.Debug("Using feed summary as content", zap.String("url", entry.URL), zap.Error(err))
	return content.ParsePreparedContent(entry.URL, types.PreparedDocument{Document: entry.Summary, PageInfo: info}, true)
}
