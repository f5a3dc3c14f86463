// Secret storage boundary: an opaque string key-value store, assumed to be
// protected by the host platform, used solely to persist the cipher key.
package crypto

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
)

// SecretStore persists short named secrets. Get returns ("", nil) when the
// name is absent; Delete on an absent name is a no-op.
type SecretStore interface {
	Get(name string) (string, error)
	Put(name, value string) error
	Delete(name string) error
}

// FileSecretStore stores each secret as a file with restrictive permissions
// under a "secure" subdirectory of the config dir. Stand-in for an OS-backed
// keychain on platforms that have one.
type FileSecretStore struct {
	configDir string
}

// NewFileSecretStore creates a FileSecretStore rooted at configDir.
func NewFileSecretStore(configDir string) *FileSecretStore {
	return &FileSecretStore{configDir: configDir}
}

func (s *FileSecretStore) secretPath(name string) (string, error) {
	if s.configDir == "" {
		return "", apperrors.New(apperrors.ErrSecretStore, "config directory not set for secret storage")
	}

	// Sanitize the name for use as a filename
	safe := strings.ReplaceAll(name, "/", "_")
	safe = strings.ReplaceAll(safe, "\\", "_")
	safe = strings.ReplaceAll(safe, "..", "_")

	return filepath.Join(s.configDir, "secure", safe+".secret"), nil
}

// Get returns the named secret, or ("", nil) when it does not exist.
func (s *FileSecretStore) Get(name string) (string, error) {
	path, err := s.secretPath(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrSecretStore, fmt.Sprintf("read secret %q", name), err)
	}
	return string(data), nil
}

// Put stores the named secret with 0600 permissions.
func (s *FileSecretStore) Put(name, value string) error {
	path, err := s.secretPath(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return apperrors.Wrap(apperrors.ErrSecretStore, "create secure directory", err)
	}

	if err := os.WriteFile(path, []byte(value), 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrSecretStore, fmt.Sprintf("write secret %q", name), err)
	}
	return nil
}

// Delete removes the named secret. Absent secrets are not an error.
func (s *FileSecretStore) Delete(name string) error {
	path, err := s.secretPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrSecretStore, fmt.Sprintf("delete secret %q", name), err)
	}
	return nil
}

// MemorySecretStore is an in-memory SecretStore for tests.
type MemorySecretStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

// NewMemorySecretStore creates an empty MemorySecretStore.
func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]string)}
}

// Get returns the named secret, or ("", nil) when absent.
func (s *MemorySecretStore) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[name], nil
}

// Put stores the named secret.
func (s *MemorySecretStore) Put(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
	return nil
}

// Delete removes the named secret.
func (s *MemorySecretStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, name)
	return nil
}
