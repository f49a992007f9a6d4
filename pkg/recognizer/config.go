package recognizer

import (
	"log/slog"
	"time"
)

const (
	DefaultMaxSize = 5 * 1024 * 1024
	DefaultLabel   = "GLM-4.5V"
)

const DefaultPrompt = `请仔细识别这张图片中的所有文字内容，特别注意以下要求：
1. 识别所有可见的文字，包括模糊、不清晰或部分遮挡的文字
2. 尽可能准确地还原文字的原始内容和含义
3. 保持原有的文本格式、段落结构和排版布局
4. 对于模糊或不确定的文字，请根据上下文进行合理推测
5. 使用简体中文输出结果
6. 如果图片中包含英文或其他语言，请保持原语言不变
7. 按照从上到下、从左到右的顺序输出文字内容

请直接输出识别到的文字内容，不需要添加额外的说明或解释。`

type Option func(*Recognizer)

// WithPrompt replaces the default recognition prompt.
func WithPrompt(prompt string) Option {
	return func(r *Recognizer) {
		r.prompt = prompt
	}
}

func WithMaxSize(size int64) Option {
	return func(r *Recognizer) {
		r.maxSize = size
	}
}

// WithLabel sets the model name shown in progress messages.
func WithLabel(label string) Option {
	return func(r *Recognizer) {
		r.label = label
	}
}

func WithThinking(enabled bool) Option {
	return func(r *Recognizer) {
		r.thinking = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = logger
	}
}

func withClock(now func() time.Time) Option {
	return func(r *Recognizer) {
		r.now = now
	}
}
