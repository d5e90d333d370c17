package identity

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexDigestRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestProvider_StableAcrossCalls(t *testing.T) {
	p := NewProvider(&MemStore{})

	first := p.DeviceID()
	require.Regexp(t, hexDigestRe, first)

	for i := 0; i < 3; i++ {
		assert.Equal(t, first, p.DeviceID())
	}
}

func TestProvider_PersistsAcrossProviders(t *testing.T) {
	store := &MemStore{}

	first := NewProvider(store).DeviceID()
	second := NewProvider(store).DeviceID()

	assert.Equal(t, first, second, "same store must yield the same device ID")
}

func TestProvider_DistinctStoresDistinctIDs(t *testing.T) {
	a := NewProvider(&MemStore{}).DeviceID()
	b := NewProvider(&MemStore{}).DeviceID()

	assert.NotEqual(t, a, b)
}

func TestProvider_FileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	store := &FileStore{Path: path}

	first := NewProvider(store).DeviceID()
	second := NewProvider(store).DeviceID()

	assert.Equal(t, first, second)

	secret, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	// The file holds the secret, not the wire identifier.
	assert.NotEqual(t, first, secret)
}

// brokenStore simulates an unavailable storage context (read-only fs, etc).
type brokenStore struct{}

func (brokenStore) Load() (string, error) { return "", errors.New("storage unavailable") }
func (brokenStore) Save(string) error     { return errors.New("storage unavailable") }

func TestProvider_DegradesToEphemeralOnStorageFailure(t *testing.T) {
	p := NewProvider(brokenStore{})

	// Never errors, never empty: the page still renders.
	id := p.DeviceID()
	require.Regexp(t, hexDigestRe, id)

	// Stable within the process...
	assert.Equal(t, id, p.DeviceID())

	// ...but ephemeral across providers, since nothing persisted.
	other := NewProvider(brokenStore{}).DeviceID()
	assert.NotEqual(t, id, other)
}
