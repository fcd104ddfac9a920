package middleware

import "context"

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxDisplayName contextKey = "display_name"
	ctxLanguage    contextKey = "lang"
	ctxRequestID   contextKey = "request_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func DisplayNameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxDisplayName)
}

// LanguageFromContext returns the negotiated language, or "" when the
// Language middleware did not run.
func LanguageFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxLanguage)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRequestID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, ctxRequestID, requestID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

// WithDisplayName injects the buyer display name carried by the token.
func WithDisplayName(ctx context.Context, name string) context.Context {
	return withValue(ctx, ctxDisplayName, name)
}

// WithLanguage injects the negotiated language for downstream handlers.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return withValue(ctx, ctxLanguage, lang)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}
