// Package llm talks to an OpenAI-compatible chat completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged conversation record.
type Message struct {
	Role    Role
	Content string
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Client sends a conversation and returns the reply text. An empty string
// with a nil error means the service answered without content.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Default request parameters.
const (
	DefaultModel       = "deepseek-chat"
	DefaultBaseURL     = "https://api.deepseek.com"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// Options configures an OpenAIClient.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// SystemPrompt, when set, is sent ahead of every conversation.
	SystemPrompt string
	// RequestTimeout bounds a single call; zero leaves it to the transport.
	RequestTimeout time.Duration
	// Extra request options, e.g. a custom HTTP client in tests.
	RequestOptions []option.RequestOption
}

// OpenAIClient implements Client with the openai-go SDK. Requests are
// non-streaming and are not retried.
type OpenAIClient struct {
	client       openai.Client
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
}

// NewOpenAIClient constructs a client for the given endpoint.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("api key is required")
	}

	baseURL := NormalizeBaseURL(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}
	reqOpts = append(reqOpts, opts.RequestOptions...)

	return &OpenAIClient{
		client:       openai.NewClient(reqOpts...),
		model:        model,
		temperature:  opts.Temperature,
		maxTokens:    maxTokens,
		systemPrompt: opts.SystemPrompt,
	}, nil
}

// Chat sends messages as a chat completion and returns the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("chat requires at least one message")
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    c.convertMessages(messages),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if c.systemPrompt != "" {
		out = append(out, openai.SystemMessage(c.systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
