package listener

import "log/slog"

const previewLen = 100

// LogListener writes one slog line per lifecycle event, previewing the
// tail of the conversation.
type LogListener struct{}

func (LogListener) OnRequest(ctx RequestContext) {
	preview := ""
	if n := len(ctx.Messages); n > 0 {
		preview = truncate(ctx.Messages[n-1].Content, previewLen)
	}
	slog.Info("model request",
		"request_id", ctx.RequestID,
		"model", ctx.ModelName,
		"messages", len(ctx.Messages),
		"last_message", preview,
	)
}

func (LogListener) OnResponse(ctx ResponseContext) {
	slog.Info("model response",
		"request_id", ctx.RequestID,
		"model", ctx.ModelName,
		"latency", ctx.Latency,
		"content", truncate(ctx.Content, previewLen),
	)
}

func (LogListener) OnError(ctx ErrorContext) {
	slog.Error("model invocation failed",
		"request_id", ctx.RequestID,
		"model", ctx.ModelName,
		"latency", ctx.Latency,
		"error", ctx.Err,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
