package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"digestbot/content"
	"digestbot/types"
)

// Title returns the digest title for the day t falls on in loc.
func Title(t time.Time, loc *time.Location) string {
	return "Your Daily Digest for " + t.In(loc).Format("Monday, January 2")
}

// Publisher stores rendered digests as library items.
type Publisher struct {
	saver         Saver
	clientBaseURL string
	location      *time.Location
	now           func() time.Time
	newID         func() string
}

// NewPublisher returns a Publisher writing through saver.
func NewPublisher(saver Saver, clientBaseURL string, location *time.Location) *Publisher {
	if location == nil {
		location = time.UTC
	}
	return &Publisher{
		saver:         saver,
		clientBaseURL: clientBaseURL,
		location:      location,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Publish wraps html as a new article in the user's library.
func (p *Publisher) Publish(ctx context.Context, userID, html string) (*types.LibraryItem, error) {
	now := p.now()
	title := Title(now, p.location)
	originalURL := fmt.Sprintf("%s/me/digest?q=%s", p.clientBaseURL, p.newID())

	doc := types.PreparedDocument{Document: html, PageInfo: types.PageInfo{}}
	parsed, err := content.ParsePreparedContent(originalURL, doc, true)
	if err != nil {
		return nil, fmt.Errorf("parse digest content: %w", err)
	}

	item := &types.LibraryItem{
		UserID:          userID,
		Title:           title,
		Slug:            content.Slugify(title),
		OriginalURL:     originalURL,
		ItemType:        types.PageTypeArticle,
		State:           types.StateSucceeded,
		Folder:          types.FolderInbox,
		Author:          parsed.Byline,
		Description:     parsed.Excerpt,
		SiteName:        parsed.SiteName,
		ReadableContent: parsed.Content,
		OriginalContent: html,
		TextContent:     parsed.TextContent,
		Markdown:        parsed.Markdown,
		WordCount:       parsed.WordCount,
		PublishedAt:     parsed.PublishedAt,
		SavedAt:         now,
	}

	saved, err := p.saver.Upsert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("upsert digest item: %w", err)
	}
	return saved, nil
}
