package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digestbot/types"
)

type fakeDefinitions struct {
	def   *types.DigestDefinition
	calls int
}

func (f *fakeDefinitions) Load(context.Context) (*types.DigestDefinition, bool) {
	f.calls++
	return f.def, f.def != nil
}

type fakeSearcher struct {
	results map[string][]types.LibraryItem
	err     error
	calls   []types.SearchOptions
}

func (f *fakeSearcher) Search(_ context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[opts.Query], nil
}

type fakeSaver struct {
	items []*types.LibraryItem
	err   error
}

func (f *fakeSaver) Upsert(_ context.Context, item *types.LibraryItem) (*types.LibraryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	stored := *item
	stored.ID = fmt.Sprintf("item-%d", len(f.items)+1)
	f.items = append(f.items, &stored)
	return &stored, nil
}

type fakeCompleter struct {
	answers []string
	prompts []string
	err     error
	panics  bool
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if f.panics {
		panic("model exploded")
	}
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.prompts) > len(f.answers) {
		return "", errors.New("unexpected completion")
	}
	return f.answers[len(f.prompts)-1], nil
}

type fakeLocker struct {
	err      error
	keys     []string
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return func() { f.released++ }, nil
}
