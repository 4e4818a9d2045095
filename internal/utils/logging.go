package utils

import (
	"context"
	"log/slog"
	"sort"

	"github.com/spboyer/ptsauto/internal/session"
)

// EventToSlog mirrors a session event to the default logger at debug level.
func EventToSlog(event session.Event) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", string(event.Type),
	}

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = addIf(attrs, k, event.Data[k])
	}

	slog.Debug("Event received", attrs...)
}

func addIf(attrs []any, name string, v any) []any {
	if v != nil {
		attrs = append(attrs, name, v)
	}

	return attrs
}
