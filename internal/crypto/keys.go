package crypto

import (
	"encoding/base64"
	"sync"

	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
)

// KeyName is the secret-store entry holding the base64-encoded cipher key.
const KeyName = "encryption_key"

// KeyManager owns the single persisted cipher key. The key is generated once
// (256-bit, random) on first use and never mutated afterwards; generation is
// mutex-guarded so concurrent first callers cannot race a second key into
// existence.
type KeyManager struct {
	store SecretStore

	mu  sync.Mutex
	key []byte // cached after first load; immutable until ClearKeys
}

// NewKeyManager creates a KeyManager backed by the given secret store.
func NewKeyManager(store SecretStore) *KeyManager {
	return &KeyManager{store: store}
}

// Key returns the installation's cipher key, generating and persisting it on
// first use.
func (m *KeyManager) Key() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key != nil {
		return m.key, nil
	}

	encoded, err := m.store.Get(KeyName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrKeyUnavailable, "load cipher key", err)
	}

	if encoded != "" {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(key) != KeySize {
			return nil, apperrors.New(apperrors.ErrKeyUnavailable, "stored cipher key is malformed")
		}
		m.key = key
		return m.key, nil
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrKeyUnavailable, "generate cipher key", err)
	}
	if err := m.store.Put(KeyName, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrKeyUnavailable, "persist cipher key", err)
	}

	m.key = key
	return m.key, nil
}

// ClearKeys destroys the persisted cipher key. This is irreversible: every
// value encrypted under the old key becomes permanently unreadable. Callers
// must warn the user before invoking it.
func (m *KeyManager) ClearKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(KeyName); err != nil {
		return apperrors.Wrap(apperrors.ErrSecretStore, "delete cipher key", err)
	}
	m.key = nil
	return nil
}
