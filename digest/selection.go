package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"digestbot/llm/prompt"
	"digestbot/types"
)

// itemRef is all the model is told about a library item.
type itemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func refsJSON(items []types.LibraryItem) (string, error) {
	refs := make([]itemRef, 0, len(items))
	for _, it := range items {
		refs = append(refs, itemRef{ID: it.ID, Title: it.Title})
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// selectItems asks the model to choose among candidates and resolves its
// answer against them.
func (p *Pipeline) selectItems(ctx context.Context, def *types.DigestDefinition, candidates, preferences []types.LibraryItem) ([]types.SelectedLibraryItem, error) {
	candidatesJSON, err := refsJSON(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	preferencesJSON, err := refsJSON(preferences)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	rendered, err := prompt.Render(def.SelectionPrompt, map[string]string{
		"candidates":  candidatesJSON,
		"preferences": preferencesJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("render selection prompt: %w", err)
	}

	answer, err := p.complete(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("selection completion: %w", err)
	}

	var results []types.SelectionResultItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &results); err != nil {
		return nil, fmt.Errorf("parse selection answer: %w", err)
	}
	p.logger.Debug("Model selection received", zap.Int("entries", len(results)))

	selected, dropped := resolveSelection(results, candidates, p.cfg.ClientBaseURL)
	for _, d := range dropped {
		p.logger.Warn("Dropping selection not among candidates", zap.String("id", d.ID), zap.String("title", d.Title))
	}

	if len(selected) > p.cfg.MaxSelections {
		p.logger.Info("Truncating selection", zap.Int("resolved", len(selected)), zap.Int("max", p.cfg.MaxSelections))
		selected = selected[:p.cfg.MaxSelections]
	}
	return selected, nil
}

// resolveSelection joins each model entry with the candidate of the same id.
// Entries whose id is not a candidate are returned in dropped instead. Only
// identity (id, title, slug) comes from the library item; topic comes from
// the model.
func resolveSelection(results []types.SelectionResultItem, candidates []types.LibraryItem, clientBaseURL string) (selected []types.SelectedLibraryItem, dropped []types.SelectionResultItem) {
	byID := make(map[string]*types.LibraryItem, len(candidates))
	for i := range candidates {
		if _, ok := byID[candidates[i].ID]; !ok {
			byID[candidates[i].ID] = &candidates[i]
		}
	}

	selected = []types.SelectedLibraryItem{}
	for _, r := range results {
		item, ok := byID[r.ID]
		if !ok {
			dropped = append(dropped, r)
			continue
		}
		selected = append(selected, types.SelectedLibraryItem{
			ID:    item.ID,
			Title: item.Title,
			Topic: r.Topic,
			URL:   clientBaseURL + "/me/" + item.Slug,
		})
	}
	return selected, dropped
}
