package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"iter"

	"github.com/unblurai/unblur/pkg/provider"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var _ provider.Completer = (*Completer)(nil)

type Completer struct {
	*Config
	completions openai.ChatCompletionService
}

func NewCompleter(url, model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		url:   url,
		model: model,
	}

	for _, option := range options {
		option(cfg)
	}

	if cfg.model == "" {
		return nil, errors.New("model is required")
	}

	return &Completer{
		Config:      cfg,
		completions: openai.NewChatCompletionService(cfg.Options()...),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		if options == nil {
			options = new(provider.CompleteOptions)
		}

		req, err := c.convertCompletionRequest(messages, options)

		if err != nil {
			yield(nil, err)
			return
		}

		var opts []option.RequestOption

		if options.Thinking {
			opts = append(opts, option.WithJSONSet("thinking", map[string]any{
				"type": "enabled",
			}))
		}

		completion, err := c.completions.New(ctx, *req, opts...)

		if err != nil {
			yield(nil, convertError(err))
			return
		}

		if len(completion.Choices) == 0 {
			yield(nil, errors.New("no choices in completion"))
			return
		}

		choice := completion.Choices[0]

		result := &provider.Completion{
			ID:     completion.ID,
			Model:  completion.Model,
			Reason: provider.CompletionReasonStop,

			Message: &provider.Message{
				Role: provider.MessageRoleAssistant,
			},

			Usage: toUsage(completion.Usage),
		}

		if val := toCompletionReason(choice.FinishReason); val != "" {
			result.Reason = val
		}

		if choice.Message.Content != "" {
			result.Message.Content = append(result.Message.Content, provider.TextContent(choice.Message.Content))
		}

		yield(result, nil)
	}
}

func (c *Completer) convertCompletionRequest(input []provider.Message, options *provider.CompleteOptions) (*openai.ChatCompletionNewParams, error) {
	messages, err := convertMessages(input)

	if err != nil {
		return nil, err
	}

	req := &openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}

	if options.MaxTokens != nil {
		req.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}

	if options.Temperature != nil {
		req.Temperature = openai.Float(float64(*options.Temperature))
	}

	return req, nil
}

func convertMessages(input []provider.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var result []openai.ChatCompletionMessageParamUnion

	for _, m := range input {
		switch m.Role {
		case provider.MessageRoleSystem:
			result = append(result, openai.SystemMessage(m.Text()))

		case provider.MessageRoleUser:
			parts := []openai.ChatCompletionContentPartUnionParam{}

			for _, c := range m.Content {
				if c.File != nil {
					part, err := convertFile(c.File)

					if err != nil {
						return nil, err
					}

					parts = append(parts, part)
				}

				if c.Text != "" {
					parts = append(parts, openai.TextContentPart(c.Text))
				}
			}

			result = append(result, openai.UserMessage(parts))

		case provider.MessageRoleAssistant:
			result = append(result, openai.AssistantMessage(m.Text()))

		default:
			return nil, errors.New("unsupported message role: " + string(m.Role))
		}
	}

	return result, nil
}

func convertFile(f *provider.File) (openai.ChatCompletionContentPartUnionParam, error) {
	switch f.ContentType {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		content := base64.StdEncoding.EncodeToString(f.Content)

		imageURL := openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + f.ContentType + ";base64," + content,
		}

		return openai.ImageContentPart(imageURL), nil
	}

	return openai.ChatCompletionContentPartUnionParam{}, errors.New("unsupported content type: " + f.ContentType)
}
