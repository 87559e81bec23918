// Package content turns prepared HTML documents into library content.
package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"digestbot/types"
)

// ErrNotReadable is returned when a document has no extractable article and
// the caller did not force acceptance.
var ErrNotReadable = errors.New("document is not readable")

// ParsePreparedContent extracts the readable article from doc.
//
// With forceAccept the document is always accepted: if readability finds
// nothing the whole body is used as content.
func ParsePreparedContent(originURL string, doc types.PreparedDocument, forceAccept bool) (types.ParsedContent, error) {
	pageURL, err := url.Parse(originURL)
	if err != nil {
		return types.ParsedContent{}, fmt.Errorf("parse origin url: %w", err)
	}

	if !forceAccept && !readability.Check(strings.NewReader(doc.Document)) {
		return types.ParsedContent{}, ErrNotReadable
	}

	var parsed types.ParsedContent
	article, err := readability.FromReader(strings.NewReader(doc.Document), pageURL)
	switch {
	case err == nil && strings.TrimSpace(article.TextContent) != "":
		parsed = types.ParsedContent{
			Title:       article.Title,
			Byline:      article.Byline,
			Content:     article.Content,
			TextContent: article.TextContent,
			Excerpt:     article.Excerpt,
			SiteName:    article.SiteName,
			PublishedAt: article.PublishedTime,
		}
	case !forceAccept:
		if err != nil {
			return types.ParsedContent{}, fmt.Errorf("readability: %w", err)
		}
		return types.ParsedContent{}, ErrNotReadable
	default:
		parsed, err = bodyContent(doc.Document)
		if err != nil {
			return types.ParsedContent{}, err
		}
	}

	applyPageInfo(&parsed, doc.PageInfo)

	converter := md.NewConverter(pageURL.Host, true, nil)
	markdown, err := converter.ConvertString(parsed.Content)
	if err != nil {
		return types.ParsedContent{}, fmt.Errorf("convert to markdown: %w", err)
	}
	parsed.Markdown = markdown
	parsed.TextContent = strings.TrimSpace(parsed.TextContent)
	parsed.WordCount = len(strings.Fields(parsed.TextContent))

	return parsed, nil
}

// bodyContent uses the raw body as the article.
func bodyContent(document string) (types.ParsedContent, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return types.ParsedContent{}, fmt.Errorf("parse document: %w", err)
	}

	body := dom.Find("body")
	html, err := body.Html()
	if err != nil {
		return types.ParsedContent{}, fmt.Errorf("render body: %w", err)
	}

	text := strings.TrimSpace(body.Text())
	return types.ParsedContent{
		Title:       strings.TrimSpace(dom.Find("title").First().Text()),
		Content:     strings.TrimSpace(html),
		TextContent: text,
		Excerpt:     excerpt(text, 200),
	}, nil
}

func applyPageInfo(parsed *types.ParsedContent, info types.PageInfo) {
	if info.Title != "" {
		parsed.Title = info.Title
	}
	if info.Author != "" {
		parsed.Byline = info.Author
	}
	if info.Description != "" {
		parsed.Excerpt = info.Description
	}
	if info.SiteName != "" {
		parsed.SiteName = info.SiteName
	}
	if info.PublishedAt != nil {
		parsed.PublishedAt = info.PublishedAt
	}
}

func excerpt(text string, max int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}
