// Package digest builds a user's daily digest: it loads the digest
// definition, gathers candidates and preferences from the library, lets a
// language model select and introduce items, and publishes the result as a
// new library article.
package digest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"digestbot/common"
	"digestbot/types"
)

// DefinitionSource provides the digest definition for a run. ok is false
// when no usable definition exists.
type DefinitionSource interface {
	Load(ctx context.Context) (def *types.DigestDefinition, ok bool)
}

// Searcher queries a user's library.
type Searcher interface {
	Search(ctx context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error)
}

// Saver persists a library item, keyed by user and original URL.
type Saver interface {
	Upsert(ctx context.Context, item *types.LibraryItem) (*types.LibraryItem, error)
}

// Completer sends one prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Locker serializes runs per user. Acquire returns common.ErrLocked when
// another run holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Deps are the collaborators of a Pipeline. Locker is optional.
type Deps struct {
	Definitions DefinitionSource
	Searcher    Searcher
	Saver       Saver
	Completer   Completer
	Locker      Locker
	Logger      *zap.Logger
}

// Pipeline runs digest jobs. It holds no per-run state and may be shared by
// concurrent runs for different users.
type Pipeline struct {
	cfg         Config
	definitions DefinitionSource
	searcher    Searcher
	completer   Completer
	locker      Locker
	publisher   *Publisher
	logger      *zap.Logger
}

// New validates cfg and deps and returns a Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	cfg = applyConfigDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Definitions == nil:
		return nil, errors.New("definition source is required")
	case deps.Searcher == nil:
		return nil, errors.New("searcher is required")
	case deps.Saver == nil:
		return nil, errors.New("saver is required")
	case deps.Completer == nil:
		return nil, errors.New("completer is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "digest"), zap.String("model", cfg.ModelName))

	return &Pipeline{
		cfg:         cfg,
		definitions: deps.Definitions,
		searcher:    deps.Searcher,
		completer:   deps.Completer,
		locker:      deps.Locker,
		publisher:   NewPublisher(deps.Saver, cfg.ClientBaseURL, cfg.Location),
		logger:      logger,
	}, nil
}

// Run builds and publishes one digest for job.UserID. It never panics and
// never returns an error directly; everything is reported in the Outcome.
func (p *Pipeline) Run(ctx context.Context, job types.DigestJob) (out Outcome) {
	logger := p.logger.With(zap.String("user_id", job.UserID))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Digest run panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			out = failed(StagePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	if job.UserID == "" {
		return p.fail(logger, StageInput, errors.New("user id is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	if p.locker != nil {
		release, err := p.locker.Acquire(ctx, job.UserID, p.cfg.JobTimeout)
		if errors.Is(err, common.ErrLocked) {
			logger.Info("Digest already running for user")
			return skipped(StageLock, ReasonAlreadyRunning)
		}
		if err != nil {
			return p.fail(logger, StageLock, err)
		}
		defer release()
	}

	logger.Info("Building daily digest")

	def, ok := p.definitions.Load(ctx)
	if !ok {
		logger.Warn("No digest definition found")
		return skipped(StageDefinition, ReasonDefinitionAbsent)
	}

	candidates, err := p.gather(ctx, job.UserID, def.CandidateSelectors)
	if err != nil {
		return p.fail(logger, StageGather, fmt.Errorf("gather candidates: %w", err))
	}
	candidates = dedupByTitle(candidates)

	preferences, err := p.gather(ctx, job.UserID, def.PreferenceSelectors)
	if err != nil {
		return p.fail(logger, StageGather, fmt.Errorf("gather preferences: %w", err))
	}
	logger.Debug("Gathered digest inputs", zap.Int("candidates", len(candidates)), zap.Int("preferences", len(preferences)))

	selections, err := p.selectItems(ctx, def, candidates, preferences)
	if err != nil {
		return p.fail(logger, StageSelect, err)
	}

	html, err := p.assemble(ctx, def, selections)
	if err != nil {
		return p.fail(logger, StageAssemble, err)
	}

	item, err := p.publisher.Publish(ctx, job.UserID, html)
	if err != nil {
		return p.fail(logger, StagePublish, err)
	}

	logger.Info("Published daily digest",
		zap.String("item_id", item.ID),
		zap.String("definition", def.Name),
		zap.Int("selections", len(selections)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return completed(item.ID)
}

func (p *Pipeline) fail(logger *zap.Logger, stage Stage, err error) Outcome {
	logger.Error("Digest run failed", zap.String("stage", string(stage)), zap.Error(err))
	return failed(stage, err)
}

func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()
	return p.completer.Complete(ctx, prompt)
}
