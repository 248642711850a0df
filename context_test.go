package tokenx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenContext(t *testing.T) {
	tok := newTestToken("bound")
	ctx := BindToken(context.Background(), tok)

	got, ok := TokenFromContext[*testToken](ctx)
	require.True(t, ok)
	require.Same(t, tok, got)

	_, ok = TokenFromContext[*otherToken](ctx)
	require.False(t, ok)

	asToken, ok := TokenFromContext[Token](ctx)
	require.True(t, ok)
	require.Equal(t, "test", asToken.Definition().Kind())

	_, ok = TokenFromContext[*testToken](context.Background())
	require.False(t, ok)
	_, ok = TokenFromContext[*testToken](nil)
	require.False(t, ok)
}
