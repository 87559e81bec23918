package digest

import (
	"context"
	"encoding/json"
	"fmt"

	"digestbot/content"
	"digestbot/llm/prompt"
	"digestbot/types"
)

// Greeting opens every digest, ahead of the model-written introduction.
const Greeting = "Hello, this is your daily digest. We want to make it easy for you to enjoy reading every day. " +
	"To do that we've picked some of the best items that were recently added to your library and created a digest. Enjoy!"

// assemble asks the model for the introduction and renders the digest HTML.
func (p *Pipeline) assemble(ctx context.Context, def *types.DigestDefinition, selections []types.SelectedLibraryItem) (string, error) {
	if selections == nil {
		selections = []types.SelectedLibraryItem{}
	}
	selectionsJSON, err := json.Marshal(selections)
	if err != nil {
		return "", fmt.Errorf("marshal selections: %w", err)
	}

	rendered, err := prompt.Render(def.AssemblePrompt, map[string]string{
		"selections": string(selectionsJSON),
	})
	if err != nil {
		return "", fmt.Errorf("render assemble prompt: %w", err)
	}

	introduction, err := p.complete(ctx, rendered)
	if err != nil {
		return "", fmt.Errorf("introduction completion: %w", err)
	}

	html, err := content.RenderMarkdown(Greeting + "\n\n" + introduction)
	if err != nil {
		return "", err
	}
	return html, nil
}
