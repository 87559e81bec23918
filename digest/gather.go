package digest

import (
	"context"
	"fmt"

	"digestbot/types"
)

// gather runs every selector in order and concatenates the results.
func (p *Pipeline) gather(ctx context.Context, userID string, selectors []types.Selector) ([]types.LibraryItem, error) {
	items := []types.LibraryItem{}
	for i, sel := range selectors {
		found, err := p.search(ctx, userID, sel)
		if err != nil {
			return nil, fmt.Errorf("selector %d (%q): %w", i, sel.Query, err)
		}
		items = append(items, found...)
	}
	return items, nil
}

func (p *Pipeline) search(ctx context.Context, userID string, sel types.Selector) ([]types.LibraryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	defer cancel()

	return p.searcher.Search(ctx, userID, types.SearchOptions{
		Offset:         0,
		Limit:          sel.Count,
		IncludePending: false,
		IncludeDeleted: false,
		IncludeContent: false,
		UseFolders:     false,
		Query:          sel.Query,
	})
}

// dedupByTitle keeps the first item for each title, preserving order.
func dedupByTitle(items []types.LibraryItem) []types.LibraryItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.LibraryItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Title]; ok {
			continue
		}
		seen[it.Title] = struct{}{}
		out = append(out, it)
	}
	return out
}
