package llm

import (
	"context"
	"errors"
	"net/http"

	"storychat/core"

	"github.com/sashabaranov/go-openai"
)

const providerName = "openai"

// Config holds the configuration for the OpenAI completion transport.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIChatTransport issues chat completion requests against the OpenAI API
// and maps transport failures into the shared error taxonomy. It performs no
// retries; every error is terminal for the turn.
type OpenAIChatTransport struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// NewOpenAIChatTransport creates a transport with the provided config.
func NewOpenAIChatTransport(config Config, logger *core.Logger) *OpenAIChatTransport {
	if config.Model == "" {
		config.Model = openai.GPT4
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIChatTransport{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "chat-transport"}),
	}
}

// Complete sends the full history and returns the first choice's content.
func (t *OpenAIChatTransport) Complete(
	ctx context.Context,
	history []core.WireMessage,
	temperature float32,
	maxTokens int,
) (string, error) {
	if t.config.APIKey == "" {
		return "", &core.AuthError{Provider: providerName, Message: "API key is not set"}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.config.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", t.mapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &core.UpstreamError{
			Provider: providerName,
			Message:  "completion response contained no content",
		}
	}

	return resp.Choices[0].Message.Content, nil
}

// ValidateAPIKey probes the completion endpoint with a minimal request.
func (t *OpenAIChatTransport) ValidateAPIKey(ctx context.Context) bool {
	_, err := t.Complete(ctx, []core.WireMessage{{Role: "user", Content: "Test"}}, 0.5, 10)
	return err == nil
}

// mapError translates a go-openai failure into the shared taxonomy:
// 401 -> AuthError, 429 -> RateLimitError, any other HTTP status ->
// UpstreamError with the provider message attached, no status -> NetworkError.
func (t *OpenAIChatTransport) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return t.mapStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return t.mapStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	t.logger.With(map[string]interface{}{"error": err}).Warn("completion request failed before a response was received")
	return &core.NetworkError{Provider: providerName, Err: err}
}

func (t *OpenAIChatTransport) mapStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return &core.AuthError{Provider: providerName, Message: message}
	case status == http.StatusTooManyRequests:
		return &core.RateLimitError{Provider: providerName, Message: message}
	default:
		return &core.UpstreamError{Provider: providerName, StatusCode: status, Message: message}
	}
}
