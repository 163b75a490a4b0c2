package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "state-signing-secret-0123456789"

func TestStateCodec_RoundTrip(t *testing.T) {
	codec := NewStateCodec(testSecret, 0)

	for _, u := range []string{
		"",
		"https://gate.example.com/upload-cache",
		"https://gate.example.com/runs?page=2&sort=desc#top",
		"/auth",
		"https://gate.example.com/ünïcødé path",
	} {
		token, err := codec.Encode(State{RedirectURL: u})
		require.NoError(t, err)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")

		got, err := codec.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, State{RedirectURL: u}, got)
	}
}

func TestStateCodec_TamperedByteNeverDecodes(t *testing.T) {
	codec := NewStateCodec(testSecret, 0)
	token, err := codec.Encode(State{RedirectURL: "https://gate.example.com/upload-cache"})
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		b := []byte(token)
		b[i] ^= 0x01
		_, err := codec.Decode(string(b))
		require.Error(t, err, "flipped byte %d decoded", i)
		assert.True(t,
			errors.Is(err, ErrStateIntegrity) || errors.Is(err, ErrStateMalformed),
			"byte %d: unexpected error %v", i, err)
	}
}

func TestStateCodec_DifferentSecretFailsIntegrity(t *testing.T) {
	other := NewStateCodec("some-other-secret-abcdefghijkl", 0)
	token, err := other.Encode(State{RedirectURL: "https://gate.example.com/"})
	require.NoError(t, err)

	_, err = NewStateCodec(testSecret, 0).Decode(token)
	require.ErrorIs(t, err, ErrStateIntegrity)
}

func TestStateCodec_Malformed(t *testing.T) {
	codec := NewStateCodec(testSecret, 0)

	for _, raw := range []string{"", "not-a-token", "a.b", strings.Repeat(".", 5)} {
		_, err := codec.Decode(raw)
		require.ErrorIs(t, err, ErrStateMalformed, "input %q", raw)
	}
}

func TestStateCodec_Expiry(t *testing.T) {
	codec := NewStateCodec(testSecret, time.Minute)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := codec.Encode(State{RedirectURL: "/auth"})
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrStateExpired)

	codec.now = time.Now
	token, err = codec.Encode(State{RedirectURL: "/auth"})
	require.NoError(t, err)

	got, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "/auth", got.RedirectURL)
}
