package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jonwraymond/embedcache/cache"
	"github.com/jonwraymond/embedcache/resilience"
)

// Config configures the OpenAI client.
type Config struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API endpoint, for proxies and compatible servers.
	BaseURL string

	// EmbeddingModel is the model used by Embed and EmbedBatch.
	// Default: "text-embedding-3-small"
	EmbeddingModel string

	// Dimensions requests shortened embeddings when positive. Models that
	// do not support it reject the request.
	Dimensions int

	// ChatModel is the model used by Generate.
	// Default: "gpt-4o-mini"
	ChatModel string

	// SystemPrompt instructs the chat model how to define a name.
	SystemPrompt string

	// RequestTimeout bounds each HTTP request. Zero leaves it to the context.
	RequestTimeout time.Duration

	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// Client computes embeddings and definitions with the OpenAI API. It
// implements cache.Embedder, cache.BatchEmbedder and cache.Generator.
//
// The SDK's own retries are disabled; every error is classified for the
// cache's retry policy instead.
type Client struct {
	client openai.Client
	config Config
}

// New creates a new OpenAI client.
func New(config Config) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
	}
	if config.ChatModel == "" {
		config.ChatModel = openai.ChatModelGPT4oMini
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.RequestTimeout))
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}

	return &Client{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) (cache.Vector, error) {
	m, err := c.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)}, 1)
	if err != nil {
		return nil, err
	}
	return m[0], nil
}

// EmbedBatch returns the embeddings of texts, one row per text in input
// order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) (cache.Matrix, error) {
	return c.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}, len(texts))
}

func (c *Client) embed(ctx context.Context, input openai.EmbeddingNewParamsInputUnion, n int) (cache.Matrix, error) {
	params := openai.EmbeddingNewParams{
		Input: input,
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
	}
	if c.config.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.config.Dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, Classify(err)
	}
	if resp == nil || len(resp.Data) != n {
		got := 0
		if resp != nil {
			got = len(resp.Data)
		}
		return nil, resilience.Permanent(fmt.Errorf("%w: %d embeddings for %d inputs", ErrBadResponse, got, n))
	}

	out := make(cache.Matrix, n)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= int64(n) || out[d.Index] != nil {
			return nil, resilience.Permanent(fmt.Errorf("%w: embedding index %d", ErrBadResponse, d.Index))
		}
		row := make(cache.Vector, len(d.Embedding))
		for i, f := range d.Embedding {
			row[i] = float32(f)
		}
		out[d.Index] = row
	}
	return out, nil
}

// Generate asks the chat model for a definition of name.
func (c *Client) Generate(ctx context.Context, name string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if c.config.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.config.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(name))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.config.ChatModel),
		Messages: messages,
	})
	if err != nil {
		return "", Classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", resilience.Permanent(fmt.Errorf("%w: no choices", ErrBadResponse))
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" && choice.Message.Content == "" {
		return "", resilience.Permanent(fmt.Errorf("%w: refused: %s", ErrBadResponse, choice.Message.Refusal))
	}
	return strings.TrimSpace(choice.Message.Content), nil
}

// Ping checks that the API is reachable and the embedding model exists.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.config.EmbeddingModel); err != nil {
		return Classify(err)
	}
	return nil
}

var (
	_ cache.Embedder      = (*Client)(nil)
	_ cache.BatchEmbedder = (*Client)(nil)
	_ cache.Generator     = (*Client)(nil)
)
