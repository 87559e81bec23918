package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
	"go.uber.org/zap"
)

// CohereCompleter implements Completer using the Cohere Chat API.
type CohereCompleter struct {
	client *cohereclient.Client
	model  string
	logger *zap.Logger
}

var _ Completer = (*CohereCompleter)(nil)

// NewCohere builds a Cohere client. Extra options are passed to the SDK,
// e.g. option.WithBaseURL for tests.
func NewCohere(apiKey, model string, timeout time.Duration, logger *zap.Logger, opts ...option.RequestOption) *CohereCompleter {
	// Force HTTP/1.1 to avoid HTTP/2 protocol errors seen against the Cohere API
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	clientOpts := append([]option.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	}, opts...)

	return &CohereCompleter{
		client: cohereclient.NewClient(clientOpts...),
		model:  model,
		logger: logger,
	}
}

// Complete sends prompt as a single chat message.
func (c *CohereCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	model := c.model
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message: prompt,
		Model:   &model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere chat returned empty response")
	}

	c.logger.Debug("Cohere completion finished", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", len(resp.Text)))
	return resp.Text, nil
}
