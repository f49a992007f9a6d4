package openai

import (
	"errors"
	"fmt"

	"github.com/unblurai/unblur/pkg/provider"

	"github.com/openai/openai-go/v3"
)

func convertError(err error) error {
	var apierr *openai.Error

	if errors.As(err, &apierr) {
		return fmt.Errorf("completion failed (%d): %w", apierr.StatusCode, err)
	}

	return err
}

func toCompletionReason(val string) provider.CompletionReason {
	switch val {
	case "stop":
		return provider.CompletionReasonStop

	case "length":
		return provider.CompletionReasonLength

	case "content_filter", "sensitive":
		return provider.CompletionReasonFilter
	}

	return ""
}

func toUsage(val openai.CompletionUsage) *provider.Usage {
	if val.PromptTokens == 0 && val.CompletionTokens == 0 {
		return nil
	}

	return &provider.Usage{
		InputTokens:  int(val.PromptTokens),
		OutputTokens: int(val.CompletionTokens),
	}
}
