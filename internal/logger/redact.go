package logger

import (
	"log/slog"
	"strings"
)

const redactedValue = "***REDACTED***"

// Keys whose string values never reach the log output.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"credential",
}

// Values that look like bearer credentials regardless of the key they were logged under.
var sensitiveValuePrefixes = []string{
	"Bearer ",
	"eyJ",
}

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			redacted[i] = redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		value := a.Value.String()
		if value == "" {
			return a
		}
		for _, prefix := range sensitiveValuePrefixes {
			if strings.HasPrefix(value, prefix) {
				return slog.String(a.Key, redactedValue)
			}
		}
		key := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(key, pattern) {
				return slog.String(a.Key, redactedValue)
			}
		}
	}
	return a
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	return redact(a)
}
