package recognizer

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/text"
)

// Recognizer reads text from blurred images and refines recognized text
// through a vision-capable chat completion model.
type Recognizer struct {
	completer provider.Completer

	prompt   string
	label    string
	maxSize  int64
	thinking bool

	logger *slog.Logger

	now func() time.Time
}

func New(completer provider.Completer, options ...Option) (*Recognizer, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}

	r := &Recognizer{
		completer: completer,

		prompt:   DefaultPrompt,
		label:    DefaultLabel,
		maxSize:  DefaultMaxSize,
		thinking: true,

		now: time.Now,
	}

	for _, option := range options {
		option(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r, nil
}

func (r *Recognizer) MaxSize() int64 {
	return r.maxSize
}

// Recognize returns the cleaned text found in the image. An empty prompt
// selects the configured default prompt.
func (r *Recognizer) Recognize(ctx context.Context, file provider.File, prompt string) (string, error) {
	r.logger.InfoContext(ctx, "starting text recognition", "size", len(file.Content))

	format, err := r.ValidateImage(file.Content)

	if err != nil {
		return "", err
	}

	if prompt == "" {
		prompt = r.prompt
	}

	r.logger.DebugContext(ctx, "using prompt", "prompt", truncate(prompt, 100))

	image := file
	image.ContentType = "image/" + format

	messages := []provider.Message{
		{
			Role: provider.MessageRoleUser,

			Content: []provider.Content{
				provider.FileContent(&image),
				provider.TextContent(prompt),
			},
		},
	}

	options := &provider.CompleteOptions{
		Thinking: r.thinking,
	}

	return r.complete(ctx, messages, options)
}

// Refine rewrites text according to a natural language instruction.
func (r *Recognizer) Refine(ctx context.Context, original, instruction string) (string, error) {
	r.logger.InfoContext(ctx, "starting text refinement", "length", utf8.RuneCountInString(original), "instruction", instruction)

	prompt := "请根据以下指令对文字内容进行微调：\n\n" +
		"原始文字内容：\n" + original + "\n\n" +
		"微调指令：\n" + instruction + "\n\n" +
		"请输出微调后的文字内容："

	options := &provider.CompleteOptions{
		Thinking: r.thinking,
	}

	return r.complete(ctx, []provider.Message{provider.UserMessage(prompt)}, options)
}

// Tune is the form based variant of Refine with a bounded, sampled answer.
func (r *Recognizer) Tune(ctx context.Context, original, instruction string) (string, error) {
	r.logger.InfoContext(ctx, "starting text tuning", "length", utf8.RuneCountInString(original), "instruction", instruction)

	prompt := "请根据以下指令对文字内容进行优化调整：\n\n" +
		"指令：" + instruction + "\n\n" +
		"原始文字内容：\n" + original + "\n\n" +
		"请直接输出优化后的文字内容，不要添加任何解释或说明。"

	maxTokens := 2000
	temperature := float32(0.7)

	options := &provider.CompleteOptions{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return r.complete(ctx, []provider.Message{provider.UserMessage(prompt)}, options)
}

func (r *Recognizer) complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (string, error) {
	completion, err := provider.Collect(r.completer.Complete(ctx, messages, options))

	if err != nil {
		r.logger.ErrorContext(ctx, "completion failed", "error", err)
		return "", err
	}

	if completion.Message == nil {
		return "", ErrEmptyResponse
	}

	raw := completion.Message.Text()

	if raw == "" {
		return "", ErrEmptyResponse
	}
	result := text.Clean(raw)

	r.logger.InfoContext(ctx, "completion finished", "raw_length", utf8.RuneCountInString(raw), "length", utf8.RuneCountInString(result))

	return result, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)

	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "..."
}
