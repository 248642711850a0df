package tokenx

import (
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/require"
)

func TestDefine_ComposesAttributeSets(t *testing.T) {
	user := Required(Attr("user_id", "uid"))
	session := Optional(Attr("session_id", "sid"))

	def, err := Define("access", jwa.RS256, user, session, Required(Attr("role", "role")))
	require.NoError(t, err)
	require.Equal(t, "access", def.Kind())
	require.Equal(t, jwa.RS256, def.Algorithm())
	require.Equal(t, Mapping{Attr("user_id", "uid"), Attr("role", "role")}, def.RequiredMapping())
	require.Equal(t, Mapping{Attr("session_id", "sid")}, def.OptionalMapping())

	claim, ok := def.RequiredMapping().Claim("role")
	require.True(t, ok)
	require.Equal(t, "role", claim)
	_, ok = def.RequiredMapping().Claim("session_id")
	require.False(t, ok)

	// The same attribute set can back another kind.
	refresh, err := Define("refresh", jwa.RS256, user)
	require.NoError(t, err)
	require.Equal(t, user.RequiredMapping(), refresh.RequiredMapping())
}

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name string
		kind string
		alg  jwa.SignatureAlgorithm
		sets []Attributes
	}{
		{name: "empty kind", kind: "", alg: jwa.RS256},
		{name: "symmetric algorithm", kind: "k", alg: jwa.HS256},
		{name: "none algorithm", kind: "k", alg: jwa.NoSignature},
		{name: "reserved claim", kind: "k", alg: jwa.RS256, sets: []Attributes{Required(Attr("kind", KindKey))}},
		{name: "empty claim", kind: "k", alg: jwa.RS256, sets: []Attributes{Required(Attr("a", ""))}},
		{name: "duplicate attribute", kind: "k", alg: jwa.RS256, sets: []Attributes{Required(Attr("a", "x")), Optional(Attr("a", "y"))}},
		{name: "duplicate claim", kind: "k", alg: jwa.RS256, sets: []Attributes{Required(Attr("a", "x"), Attr("b", "x"))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Define(tc.kind, tc.alg, tc.sets...)
			require.Equal(t, ErrCodeInvalidDefinition, codeOf(t, err))
		})
	}

	require.Equal(t, ErrCodeInvalidDefinition, codeOf(t, ValidateDefinition(nil)))
	require.NoError(t, ValidateDefinition(explicitDefinition{}))
}

func TestMustDefine_Panics(t *testing.T) {
	require.Panics(t, func() { MustDefine("", jwa.RS256) })
	require.NotPanics(t, func() { MustDefine("ok", jwa.ES256) })
}

func TestDeclarationStylesAreEquivalent(t *testing.T) {
	note := "n"
	composed := newTestToken("same")
	composed.Note = &note
	composed.Claims().Set(ExpirationKey, inOneHour())

	explicit := &explicitToken{}
	explicit.Text = "same"
	explicit.Note = &note
	explicit.Claims().Set(ExpirationKey, composed.Claims()[ExpirationKey])

	fromComposed, err := Encode(testKey, composed)
	require.NoError(t, err)
	fromExplicit, err := Encode(testKey, explicit)
	require.NoError(t, err)
	require.Equal(t, fromComposed, fromExplicit)

	decoded, err := Decode[explicitToken](fromComposed, &testKey.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "same", decoded.Text)
	require.Equal(t, note, *decoded.Note)
}

func TestDecode_RejectsInvalidDefinition(t *testing.T) {
	_, err := DecodeValue("a.b.c", &testKey.PublicKey, &Schema{kind: "k", algorithm: jwa.HS256})
	require.Equal(t, ErrCodeInvalidDefinition, codeOf(t, err))
	require.ErrorIs(t, err, ErrDecode)
}
