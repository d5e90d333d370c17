// Package identity produces and persists the pseudo-anonymous per-device
// identifier used to deduplicate votes. The identifier is not a credential:
// clearing storage mints a new one, and the server never verifies it beyond
// the uniqueness constraint.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/pkg/hash"
)

// Store persists the local device secret across sessions.
type Store interface {
	Load() (string, error)
	Save(secret string) error
}

// Provider returns a stable device identifier, creating and persisting one
// on first use. When the store fails, it degrades to an ephemeral per-process
// identifier instead of returning an error, so a read-only environment still
// renders (its votes just won't deduplicate across restarts).
type Provider struct {
	store Store

	mu     sync.Mutex
	cached string
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// DeviceID returns the wire identifier for this device: the iterated SHA256
// digest of the locally held secret. Identical across calls within one
// provider, and across processes when the store round-trips.
func (p *Provider) DeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached
	}

	secret, err := p.store.Load()
	if err != nil || secret == "" {
		secret = newSecret()
		if saveErr := p.store.Save(secret); saveErr != nil {
			// Storage unavailable: fall back to an ephemeral identity held
			// only in memory. Never an error to the caller.
			p.cached = hash.HashDeviceSecret(secret)
			return p.cached
		}
	}

	p.cached = hash.HashDeviceSecret(secret)
	return p.cached
}

// newSecret mints a fresh device secret: random UUID plus creation
// timestamp, mirroring what the web client stores in localStorage.
func newSecret() string {
	return fmt.Sprintf("%s-%d", uuid.NewString(), time.Now().UnixMilli())
}

// FileStore persists the device secret in a dotfile, one value under a
// fixed key, created lazily on first use.
type FileStore struct {
	Path string
}

// DefaultFileStore stores the secret under the user's home directory.
func DefaultFileStore() *FileStore {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &FileStore{Path: filepath.Join(home, ".engage_device_id")}
}

func (s *FileStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Save(secret string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(secret+"\n"), 0o600)
}

// MemStore is an in-memory Store for tests and ephemeral embedders.
type MemStore struct {
	mu     sync.Mutex
	secret string
}

func (s *MemStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secret, nil
}

func (s *MemStore) Save(secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = secret
	return nil
}
