package recognizer

import (
	"context"
	"iter"
	"math"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/session"
)

// Stream runs a recognition and reports its progress as streaming events:
// one start, progress steps, and exactly one terminal success or error.
func (r *Recognizer) Stream(ctx context.Context, file provider.File, prompt string) iter.Seq[session.StreamingProgress] {
	return func(yield func(session.StreamingProgress) bool) {
		started := r.now()

		elapsed := func() float64 {
			return math.Round(r.now().Sub(started).Seconds()*100) / 100
		}

		progress := func(message string) bool {
			return yield(session.StreamingProgress{
				Type:    session.ProgressTypeProgress,
				Message: message,
			})
		}

		fail := func(message string, timed bool) {
			event := session.StreamingProgress{
				Type:    session.ProgressTypeError,
				Message: message,
			}

			if timed {
				event.ProcessingTime = elapsed()
			}

			yield(event)
		}

		if !yield(session.StreamingProgress{Type: session.ProgressTypeStart, Message: "开始处理图片..."}) {
			return
		}

		if err := CheckContentType(file.ContentType); err != nil {
			fail(err.Error(), false)
			return
		}

		if !progress("正在读取图片文件...") {
			return
		}

		if err := r.CheckSize(int64(len(file.Content))); err != nil {
			fail(err.Error(), false)
			return
		}

		for _, message := range []string{
			"正在调用" + r.label + "模型识别...",
			"模型正在分析图片内容...",
			"正在识别文字内容...",
		} {
			if !progress(message) {
				return
			}
		}

		text, err := r.Recognize(ctx, file, prompt)

		if err != nil {
			r.logger.ErrorContext(ctx, "stream recognition failed", "error", err)

			fail("识别失败: "+err.Error(), true)
			return
		}

		if !progress("文字识别完成，正在处理结果...") {
			return
		}

		yield(session.StreamingProgress{
			Type:    session.ProgressTypeSuccess,
			Message: "文字识别成功",

			RecognizedText: text,
			ProcessingTime: elapsed(),
		})
	}
}
