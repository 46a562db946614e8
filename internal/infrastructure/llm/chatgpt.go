package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// ChatGPTClient implements content expansion and drafting on top of an
// OpenAI-compatible chat completion API.
type ChatGPTClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

var (
	_ ports.ContentGenerator = (*ChatGPTClient)(nil)
	_ ports.Drafter          = (*ChatGPTClient)(nil)
)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &ChatGPTClient{
		client:       openai.NewClientWithConfig(oc),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
	}
}

// ExpandContent rewrites a thin article into a fuller HTML body. The result
// is not checked for length or quality.
func (c *ChatGPTClient) ExpandContent(ctx context.Context, article domain.Article) (string, error) {
	raw, err := c.complete(ctx, safePrompt(c.systemPrompt, expansionSystemPrompt), expansionUserPrompt(article))
	if err != nil {
		return "", err
	}
	return ParseExpansion(raw)
}

// DraftArticle asks for a complete news article and decodes it strictly.
func (c *ChatGPTClient) DraftArticle(ctx context.Context, brief domain.DraftBrief) (domain.NewsDraft, error) {
	raw, err := c.complete(ctx, draftSystemPrompt, draftUserPrompt(brief))
	if err != nil {
		return domain.NewsDraft{}, err
	}
	draft, err := ParseDraft(raw)
	if err != nil {
		return domain.NewsDraft{}, err
	}
	if draft.Category == "" {
		draft.Category = brief.Category
	}
	return draft, nil
}

func (c *ChatGPTClient) complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("chatgpt client is nil")
	}
	if c.model == "" {
		return "", errors.New("chatgpt client misconfigured: empty model")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.4,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("chat completion returned no content")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func safePrompt(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fallback
	}
	return prompt
}
