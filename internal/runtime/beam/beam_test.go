package beam

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/luminet/beamline/internal/runtime/errors"
)

func TestNewPrivateShape(t *testing.T) {
	b := NewPrivate(VoiceNamespace)
	require.True(t, strings.HasPrefix(b, VoiceNamespace+":"))

	suffix := strings.TrimPrefix(b, VoiceNamespace+":")
	assert.Len(t, suffix, 10)
}

func TestNewPrivateIsCollisionResistant(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		b := NewPrivate(PromptNamespace)
		if _, ok := seen[b]; ok {
			t.Fatalf("duplicate private beam: %s", b)
		}
		seen[b] = struct{}{}
	}
}

func TestNewPrivatePair(t *testing.T) {
	pair := NewPrivatePair(VoiceNamespace)
	assert.True(t, strings.HasPrefix(pair.Request, VoiceNamespace+":request:"))
	assert.True(t, strings.HasPrefix(pair.Reply, VoiceNamespace+":reply:"))
	assert.NotEqual(t, pair.Request, pair.Reply)
}

func TestMergeEnforcesSingleBeam(t *testing.T) {
	w, err := Merge(
		Photon{Beam: TaskCreated, Payload: []byte("a")},
		Photon{Beam: TaskCreated, Payload: []byte("b")},
	)
	require.NoError(t, err)
	assert.Equal(t, TaskCreated, w.Beam)
	assert.Equal(t, 2, w.Len())

	_, err = Merge(
		Photon{Beam: TaskCreated, Payload: []byte("a")},
		Photon{Beam: TaskUpdated, Payload: []byte("b")},
	)
	assert.ErrorIs(t, err, errspkg.ErrMixedBeams)

	_, err = Merge()
	assert.ErrorIs(t, err, errspkg.ErrBeamRequired)
}

func TestWaveletPhotonsRoundTrip(t *testing.T) {
	w := NewWavelet(UserCreated, []byte("x"))
	photons := w.Photons()
	require.Len(t, photons, 1)
	assert.Equal(t, UserCreated, photons[0].Beam)
	assert.Equal(t, []byte("x"), photons[0].Payload)
}
