package translator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient translates using a chat model when no dedicated
// MT engine is deployed
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI based translator
func NewOpenAIClient(key, model string) (*OpenAIClient, error) {
	if key == "" {
		return nil, fmt.Errorf("no api key")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIClient{client: openai.NewClient(key), model: model}, nil
}

// Translate returns text translated from srcLang to dstLang
func (c *OpenAIClient) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user text from %s to %s. Return only the translation.", srcLang, dstLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
