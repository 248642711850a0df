package tokenx

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/require"
)

var (
	testAttributes  = Required(Attr("attribute", "attr"))
	testDefinition  = MustDefine("test", jwa.RS256, testAttributes.Optional(Attr("note", "nte")))
	otherDefinition = MustDefine("other", jwa.RS256, testAttributes)
)

// testToken is declared by composing a reusable attribute set.
type testToken struct {
	Base
	Text string
	Note *string
}

func newTestToken(text string) *testToken {
	return &testToken{Text: text}
}

func (*testToken) Definition() Definition { return testDefinition }

func (t *testToken) Attribute(name string) any {
	switch name {
	case "attribute":
		return NonEmpty(t.Text)
	case "note":
		return Deref(t.Note)
	}
	return nil
}

func (t *testToken) SetAttribute(name string, value any) error {
	switch name {
	case "attribute":
		return Assign(&t.Text, value)
	case "note":
		return AssignPtr(&t.Note, value)
	}
	return nil
}

// otherToken shares the attributes of testToken under a different kind.
type otherToken struct {
	testToken
}

func (*otherToken) Definition() Definition { return otherDefinition }

// explicitDefinition declares the same kind as testDefinition with all four
// methods spelled out.
type explicitDefinition struct{}

func (explicitDefinition) Kind() string                      { return "test" }
func (explicitDefinition) Algorithm() jwa.SignatureAlgorithm { return jwa.RS256 }
func (explicitDefinition) RequiredMapping() Mapping          { return Mapping{Attr("attribute", "attr")} }
func (explicitDefinition) OptionalMapping() Mapping          { return Mapping{Attr("note", "nte")} }

type explicitToken struct {
	testToken
}

func (*explicitToken) Definition() Definition { return explicitDefinition{} }

var testKey = mustRSAKey()

func mustRSAKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func inOneHour() int64 {
	return time.Now().Add(time.Hour).Unix()
}

// signRaw signs an arbitrary payload, bypassing the encoder's checks.
func signRaw(t *testing.T, key any, alg jwa.SignatureAlgorithm, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.TypeKey, "JWT"))
	signed, err := jws.Sign(payload, jws.WithKey(alg, key, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}

// verifiedPayload checks the signature independently of the decoder and
// returns the payload.
func verifiedPayload(t *testing.T, encoded string, key *rsa.PrivateKey) map[string]any {
	t.Helper()
	payload, err := jws.Verify([]byte(encoded), jws.WithKey(jwa.RS256, &key.PublicKey))
	require.NoError(t, err)
	out, err := decodeObject(payload)
	require.NoError(t, err)
	return out
}

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	return e.Code
}

func signRawBytes(t *testing.T, payload []byte) string {
	t.Helper()
	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256, testKey))
	require.NoError(t, err)
	return string(signed)
}
