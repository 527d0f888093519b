package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces redacted values.
const MaskValue = "***REDACTED***"

// redactedKeys are attribute keys whose values are always masked: the PII
// fields an extraction returns plus credentials that reach request logs.
var redactedKeys = map[string]bool{
	// extracted fields
	"user_name": true,
	"phone":     true,
	"email":     true,
	"aadhaar":   true,
	"pan":       true,
	"address":   true,
	"dl":        true,
	"voter_id":  true,
	"dob":       true,

	// HTTP credentials
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"session":       true,
	"session_id":    true,
}

// piiPatterns mask matching substrings inside any string value.
var piiPatterns = []*regexp.Regexp{
	// email addresses
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),

	// Aadhaar: 12 digits, optionally grouped 4-4-4
	regexp.MustCompile(`\b\d{4}[ \-]?\d{4}[ \-]?\d{4}\b`),

	// PAN: five letters, four digits, one letter
	regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`),

	// Indian mobile numbers, optionally +91 prefixed, split 5-5 or not
	regexp.MustCompile(`(?:\+91[\s-]?|\b)[6-9]\d{4}[\s-]?\d{5}\b`),

	// dates: dd/mm/yyyy, dd-mm-yy and yyyy-mm-dd
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// RedactingHandler wraps an slog.Handler and masks PII before records reach
// the underlying handler. Keys in redactedKeys are masked outright. Every
// other string value, and the printed form of any other non-scalar value
// (errors, slices, structs, Stringers), has PII-looking substrings replaced.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, RedactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			clean[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, RedactString(err.Error()))
		}
		return slog.String(a.Key, RedactString(fmt.Sprint(v.Any())))
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// RedactString masks every PII-looking substring of s.
func RedactString(s string) string {
	for _, p := range piiPatterns {
		s = p.ReplaceAllString(s, MaskValue)
	}
	return s
}
