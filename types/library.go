package types

import "time"

// ItemState is the ingestion state of a library item.
type ItemState string

const (
	StateSucceeded  ItemState = "SUCCEEDED"
	StateProcessing ItemState = "PROCESSING"
	StateFailed     ItemState = "FAILED"
	StateArchived   ItemState = "ARCHIVED"
	StateDeleted    ItemState = "DELETED"
)

// PageType classifies what kind of content a library item holds.
type PageType string

const (
	PageTypeArticle PageType = "ARTICLE"
	PageTypeFile    PageType = "FILE"
	PageTypeWebsite PageType = "WEBSITE"
	PageTypeUnknown PageType = "UNKNOWN"
)

// Default folders an item can live in.
const (
	FolderInbox     = "inbox"
	FolderFollowing = "following"
)

// LibraryItem is a saved piece of content owned by a single user.
type LibraryItem struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	OriginalURL     string     `json:"original_url"`
	ItemType        PageType   `json:"item_type"`
	State           ItemState  `json:"state"`
	Folder          string     `json:"folder"`
	Labels          []string   `json:"labels,omitempty"`
	Author          string     `json:"author,omitempty"`
	Description     string     `json:"description,omitempty"`
	SiteName        string     `json:"site_name,omitempty"`
	ReadableContent string     `json:"readable_content,omitempty"`
	OriginalContent string     `json:"original_content,omitempty"`
	TextContent     string     `json:"text_content,omitempty"`
	Markdown        string     `json:"markdown,omitempty"`
	WordCount       int        `json:"word_count"`
	ReadingProgress float64    `json:"reading_progress"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	SavedAt         time.Time  `json:"saved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
}

// SearchOptions is the query shape accepted by the library search index.
type SearchOptions struct {
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
	IncludePending bool   `json:"include_pending"`
	IncludeDeleted bool   `json:"include_deleted"`
	IncludeContent bool   `json:"include_content"`
	UseFolders     bool   `json:"use_folders"`
	Query          string `json:"query"`
}

// PageInfo carries metadata known about a document before parsing it.
type PageInfo struct {
	Title        string     `json:"title,omitempty"`
	Author       string     `json:"author,omitempty"`
	Description  string     `json:"description,omitempty"`
	SiteName     string     `json:"site_name,omitempty"`
	CanonicalURL string     `json:"canonical_url,omitempty"`
	ContentType  string     `json:"content_type,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// PreparedDocument is raw HTML plus whatever page metadata came with it.
type PreparedDocument struct {
	Document string   `json:"document"`
	PageInfo PageInfo `json:"page_info"`
}

// ParsedContent is the normalized result of parsing a prepared document.
type ParsedContent struct {
	Title       string     `json:"title"`
	Byline      string     `json:"byline,omitempty"`
	Content     string     `json:"content"`
	TextContent string     `json:"text_content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	SiteName    string     `json:"site_name,omitempty"`
	Markdown    string     `json:"markdown,omitempty"`
	WordCount   int        `json:"word_count"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
