package coach

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/sashabaranov/go-openai"
)

// Responder produces a streamed model reply for a conversation. onDelta is
// called for every non-empty chunk; returning an error stops the stream.
type Responder interface {
	Stream(ctx context.Context, system string, history []models.ChatTurn, onDelta func(string) error) error
}

// OpenAIConfig selects an OpenAI or Azure OpenAI deployment.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	// AzureDeployment switches to Azure OpenAI when set.
	AzureDeployment string
	APIVersion      string
}

// OpenAIResponder streams chat completions with go-openai.
type OpenAIResponder struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIResponder builds a responder from cfg.
func NewOpenAIResponder(cfg OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	var clientConfig openai.ClientConfig
	model := cfg.Model
	if cfg.AzureDeployment != "" {
		if cfg.BaseURL == "" {
			return nil, errors.New("azure endpoint (base_url) is required")
		}
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
		deployment := cfg.AzureDeployment
		clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
		if model == "" {
			model = deployment
		}
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		if model == "" {
			model = openai.GPT3Dot5Turbo
		}
	}

	return &OpenAIResponder{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Stream implements Responder.
func (o *OpenAIResponder) Stream(ctx context.Context, system string, history []models.ChatTurn, onDelta func(string) error) error {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, t := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: roleFor(t.Role), Content: t.Content})
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages:    messages,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("creating completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving completion: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onDelta(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

func roleFor(r models.Role) string {
	if r == models.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
