// Package cred stores WebDAV credentials out-of-band, sealed at rest.
// Configurations reference a credential by ID; secrets are never embedded
// in sync configuration rows.
package cred

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrNotFound is returned when no credential exists for the given ID.
var ErrNotFound = errors.New("credential not found")

const (
	secretFile = ".machine_secret"
	saltLen    = 16
)

// Store persists one encrypted credential file per sync configuration
// under its directory. Files are sealed with ChaCha20-Poly1305 under a
// scrypt-derived key from a per-installation machine secret.
type Store struct {
	dir string
}

// New opens (or initializes) a credential store in dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create credential directory: %w", err)
	}
	s := &Store{dir: dir}
	if _, err := s.machineSecret(); err != nil {
		return nil, err
	}
	return s, nil
}

// machineSecret loads the per-installation secret, generating it on first
// use.
func (s *Store) machineSecret() ([]byte, error) {
	p := filepath.Join(s.dir, secretFile)

	secret, err := os.ReadFile(p)
	if err == nil && len(secret) == 32 {
		return secret, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read machine secret: %w", err)
	}

	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate machine secret: %w", err)
	}
	if err := os.WriteFile(p, secret, 0600); err != nil {
		return nil, fmt.Errorf("write machine secret: %w", err)
	}
	return secret, nil
}

// deriveKey stretches the machine secret into a cipher key for one salt.
func (s *Store) deriveKey(salt []byte) ([]byte, error) {
	secret, err := s.machineSecret()
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key(secret, salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".cred")
}

// Save seals and persists the credential for the given configuration ID,
// replacing any previous one.
func (s *Store) Save(id, secret string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(secret), []byte(id))

	// Layout: salt || nonce || ciphertext.
	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	if err := os.WriteFile(s.path(id), blob, 0600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Get opens the credential for the given configuration ID.
func (s *Store) Get(id string) (string, error) {
	blob, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read credential: %w", err)
	}

	if len(blob) < saltLen+chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("credential file for %s is corrupt", id)
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	sealed := blob[saltLen+chacha20poly1305.NonceSizeX:]

	key, err := s.deriveKey(salt)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	secret, err := aead.Open(nil, nonce, sealed, []byte(id))
	if err != nil {
		return "", fmt.Errorf("unseal credential for %s: %w", id, err)
	}
	return string(secret), nil
}

// Delete removes the credential for the given configuration ID. Deleting
// a missing credential is not an error.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
