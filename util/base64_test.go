package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBase64(t *testing.T) {
	t.Log("nil gives an empty string")
	b64, err := ToBase64(nil, false)
	assert.NoError(t, err)
	assert.Equal(t, "", b64)

	t.Log("a value is JSON encoded before base 64 encoding")
	b64, err = ToBase64(map[string]int{"a": 1}, false)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(decoded))

	t.Log("strings are JSON strings, quotes included")
	b64, err = ToBase64("abc", false)
	require.NoError(t, err)
	decoded, err = base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(decoded))
}

func TestToBase64NotEncodable(t *testing.T) {
	ch := make(chan int)

	t.Log("a channel cannot be encoded")
	b64, err := ToBase64(ch, false)
	assert.Equal(t, "", b64)
	require.Error(t, err)
	typeErr, ok := err.(*TypeError)
	require.True(t, ok, "error should be a *TypeError, got %T", err)
	assert.Equal(t, ch, typeErr.Value)

	t.Log("unless told to return an empty string instead")
	b64, err = ToBase64(ch, true)
	assert.NoError(t, err)
	assert.Equal(t, "", b64)
}

func TestBase64UTF8RoundTrip(t *testing.T) {
	b64 := ToBase64FromUTF8("DUMMY_ciphertext")
	assert.Equal(t, "RFVNTVlfY2lwaGVydGV4dA==", b64)

	s, err := FromBase64ToUTF8(b64)
	assert.NoError(t, err)
	assert.Equal(t, "DUMMY_ciphertext", s)

	_, err = FromBase64ToUTF8("%%% not base 64 %%%")
	assert.Error(t, err)
}
