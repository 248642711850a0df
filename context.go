package tokenx

import "context"

type tokenKey struct{}

// BindToken stores a decoded token inside the context for downstream consumers.
func BindToken(ctx context.Context, t Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, t)
}

// TokenFromContext retrieves a token of type T previously stored with BindToken.
func TokenFromContext[T Token](ctx context.Context) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	value := ctx.Value(tokenKey{})
	if value == nil {
		return zero, false
	}
	t, ok := value.(T)
	return t, ok
}
