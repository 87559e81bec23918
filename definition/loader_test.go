package definition

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"digestbot/types"
)

type fakeReader struct {
	objects map[string]string
	err     error
	calls   int
}

func (f *fakeReader) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

const validDefinition = `{
  "name": "simple-001",
  "preferenceSelectors": [{"query": "is:read sort:updated", "count": 5, "reason": "recently read"}],
  "candidateSelectors": [{"query": "in:inbox saved:1d", "count": 20}],
  "fastMatchAttributes": ["title"],
  "selectionPrompt": "Candidates: {candidates}\nPreferences: {preferences}\nAnswer as [{{\"id\": \"...\"}}]",
  "assemblePrompt": "Write an introduction for {selections}",
  "introductionCopy": ["Hello"]
}`

func TestLoad(t *testing.T) {
	reader := &fakeReader{objects: map[string]string{"bucket/digest-builders/simple-001.json": validDefinition}}
	l := NewLoader(reader, "bucket", "digest-builders/simple-001.json", zap.NewNop())

	def, ok := l.Load(context.Background())
	require.True(t, ok)

	assert.Equal(t, "simple-001", def.Name)
	assert.Equal(t, []types.Selector{{Query: "is:read sort:updated", Count: 5, Reason: "recently read"}}, def.PreferenceSelectors)
	assert.Equal(t, []types.Selector{{Query: "in:inbox saved:1d", Count: 20}}, def.CandidateSelectors)
	assert.Equal(t, []string{"title"}, def.FastMatchAttributes)
	assert.Equal(t, []string{"Hello"}, def.IntroductionCopy)
	assert.Equal(t, 1, reader.calls)
}

func TestLoadAbsentSelectorsAreEmpty(t *testing.T) {
	l := NewLoader(nil, "", "", zap.NewNop())
	def, err := l.Parse([]byte(`{"name":"n","selectionPrompt":"{candidates}","assemblePrompt":"{selections}"}`))
	require.NoError(t, err)

	assert.NotNil(t, def.PreferenceSelectors)
	assert.Empty(t, def.PreferenceSelectors)
	assert.NotNil(t, def.CandidateSelectors)
	assert.Empty(t, def.CandidateSelectors)
}

func TestLoadFailuresAreAbsent(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{name: "retrieval error", err: errors.New("access denied")},
		{name: "not json", body: "not json"},
		{name: "unknown field", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y","extra":1}`},
		{name: "missing name", body: `{"selectionPrompt":"x","assemblePrompt":"y"}`},
		{name: "missing selection prompt", body: `{"name":"n","assemblePrompt":"y"}`},
		{name: "missing assemble prompt", body: `{"name":"n","selectionPrompt":"x"}`},
		{name: "selector without query", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y","candidateSelectors":[{"count":3}]}`},
		{name: "selector with zero count", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y","preferenceSelectors":[{"query":"q","count":0}]}`},
		{name: "wrong field type", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y","candidateSelectors":{}}`},
		{name: "unknown placeholder", body: `{"name":"n","selectionPrompt":"{user}","assemblePrompt":"y"}`},
		{name: "selections in selection prompt", body: `{"name":"n","selectionPrompt":"{selections}","assemblePrompt":"y"}`},
		{name: "broken template", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"{selections"}`},
		{name: "trailing data", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y"} {}`},
		{name: "trailing brace", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y"} }`},
		{name: "trailing bracket and garbage", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y"} ]garbage`},
		{name: "trailing scalar", body: `{"name":"n","selectionPrompt":"x","assemblePrompt":"y"} 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			reader := &fakeReader{objects: map[string]string{"b/k": tt.body}, err: tt.err}
			l := NewLoader(reader, "b", "k", zap.New(core))

			def, ok := l.Load(context.Background())
			assert.False(t, ok)
			assert.Nil(t, def)
			assert.Equal(t, 1, logs.FilterMessage("Digest definition unavailable").Len())
		})
	}
}

func TestLoadMissingObject(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewLoader(&fakeReader{objects: map[string]string{}}, "b", "k", zap.New(core))

	_, ok := l.Load(context.Background())
	assert.False(t, ok)
	require.Equal(t, 1, logs.FilterMessage("Digest definition not found").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestParseAllowsTrailingWhitespace(t *testing.T) {
	l := NewLoader(nil, "", "", zap.NewNop())
	_, err := l.Parse([]byte("{\"name\":\"n\",\"selectionPrompt\":\"x\",\"assemblePrompt\":\"y\"}\n\t \n"))
	assert.NoError(t, err)
}

func TestLoadWithoutBucket(t *testing.T) {
	reader := &fakeReader{}
	l := NewLoader(reader, "", "k", zap.NewNop())
	_, ok := l.Load(context.Background())
	assert.False(t, ok)
	assert.Zero(t, reader.calls)
}
