package services

import "context"

type contextKey string

const (
	extractionIDKey contextKey = "extraction_id"
	sourceKey       contextKey = "source"
	formatKey       contextKey = "format"
)

// WithExtractionID annotates context with the per-call extraction identifier.
func WithExtractionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, extractionIDKey, id)
}

// ExtractionIDFromContext extracts the extraction identifier if present.
func ExtractionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(extractionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates context with the container path being extracted.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the container path if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFormat annotates context with the name of the handler serving the call.
func WithFormat(ctx context.Context, format string) context.Context {
	if format == "" {
		return ctx
	}
	return context.WithValue(ctx, formatKey, format)
}

// FormatFromContext returns the handler name if present.
func FormatFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(formatKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
