// Package definition loads digest definitions from object storage.
package definition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"digestbot/common"
	"digestbot/llm/prompt"
	"digestbot/types"
)

// maxDefinitionSize bounds how much of the object is read.
const maxDefinitionSize = 1 << 20

// Placeholders each prompt template may reference.
var (
	selectionVars = []string{"candidates", "preferences"}
	assembleVars  = []string{"selections"}
)

// ObjectReader fetches an object body. Callers close the returned reader.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Loader fetches and validates the digest definition for each run.
type Loader struct {
	reader   ObjectReader
	bucket   string
	key      string
	validate *validator.Validate
	logger   *zap.Logger
}

// NewLoader returns a Loader reading bucket/key through reader.
func NewLoader(reader ObjectReader, bucket, key string, logger *zap.Logger) *Loader {
	return &Loader{
		reader:   reader,
		bucket:   bucket,
		key:      key,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(zap.String("component", "definition"), zap.String("bucket", bucket), zap.String("key", key)),
	}
}

// Load fetches the definition. Any failure is logged and reported as
// ok == false; nothing is returned to the caller as an error.
func (l *Loader) Load(ctx context.Context) (*types.DigestDefinition, bool) {
	def, err := l.fetch(ctx)
	if common.IsNotFound(err) {
		l.logger.Warn("Digest definition not found", zap.Error(err))
		return nil, false
	}
	if err != nil {
		l.logger.Error("Digest definition unavailable", zap.Error(err))
		return nil, false
	}
	l.logger.Debug("Loaded digest definition",
		zap.String("name", def.Name),
		zap.Int("preference_selectors", len(def.PreferenceSelectors)),
		zap.Int("candidate_selectors", len(def.CandidateSelectors)),
	)
	return def, true
}

func (l *Loader) fetch(ctx context.Context) (*types.DigestDefinition, error) {
	if l.reader == nil {
		return nil, errors.New("no object reader configured")
	}
	if l.bucket == "" {
		return nil, errors.New("no bucket configured")
	}

	body, err := l.reader.GetObject(ctx, l.bucket, l.key)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxDefinitionSize))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}

	return l.Parse(raw)
}

// Parse decodes and validates a definition document.
func (l *Loader) Parse(raw []byte) (*types.DigestDefinition, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var def types.DigestDefinition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode definition: trailing data after object")
	}

	if err := l.validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("validate definition: %w", err)
	}
	if err := checkTemplate("selectionPrompt", def.SelectionPrompt, selectionVars); err != nil {
		return nil, err
	}
	if err := checkTemplate("assemblePrompt", def.AssemblePrompt, assembleVars); err != nil {
		return nil, err
	}

	if def.PreferenceSelectors == nil {
		def.PreferenceSelectors = []types.Selector{}
	}
	if def.CandidateSelectors == nil {
		def.CandidateSelectors = []types.Selector{}
	}
	return &def, nil
}

func checkTemplate(field, tmpl string, allowed []string) error {
	vars, err := prompt.Variables(tmpl)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, v := range vars {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("%s: unknown placeholder {%s}", field, v)
		}
	}
	return nil
}
