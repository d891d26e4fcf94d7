package disclosure

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/provider"
)

const systemPrompt = `You classify Korean and English regulatory filing headlines for a listed company.
Answer with exactly one label and nothing else:
earnings, rights_offering, merger, embezzlement, dividend, other.`

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// LLM asks a chat model for the category and falls back to keyword matching
// when the call fails or the answer is not a known label.
type LLM struct {
	tracer   trace.Tracer
	client   LLMClient
	model    string
	fallback Classifier
	logger   zerolog.Logger
}

func NewLLM(tracer trace.Tracer, client LLMClient, model string, logger zerolog.Logger) *LLM {
	return &LLM{
		tracer:   tracer,
		client:   client,
		model:    model,
		fallback: Keyword{},
		logger:   logger.With().Str("component", "disclosure-llm").Logger(),
	}
}

func (c *LLM) Classify(ctx context.Context, item provider.FeedItem) (domain.DisclosureCategory, error) {
	ctx, span := c.tracer.Start(ctx, "disclosure.llm-classify")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model), attribute.String("code", item.Code))

	label, err := c.ask(ctx, item)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn().Err(err).Str("code", item.Code).Msg("llm classification failed, using keywords")
		return c.fallback.Classify(ctx, item)
	}
	cat, ok := ParseCategory(label)
	if !ok {
		c.logger.Warn().Str("label", label).Str("code", item.Code).Msg("unknown llm label, using keywords")
		return c.fallback.Classify(ctx, item)
	}
	return cat, nil
}

func (c *LLM) ask(ctx context.Context, item provider.FeedItem) (string, error) {
	prompt := item.Title
	if item.Summary != "" {
		prompt += "\n" + item.Summary
	}
	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}
	return completion.Choices[0].Message.Content, nil
}

type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	return &openaiClient{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (c *openaiClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
