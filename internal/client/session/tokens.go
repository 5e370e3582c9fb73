package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Tokens is the persisted credential. The access token is stored under the
// fixed key "access_token"; its presence alone decides whether a session is resumed.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenStore persists Tokens across client restarts.
type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// ErrCorruptTokenFile is returned when the token file cannot be opened or decoded.
var ErrCorruptTokenFile = errors.New("token file is corrupt")

// NewAEAD derives an AES-256-GCM cipher from an arbitrary secret.
func NewAEAD(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// FileTokenStore keeps Tokens as JSON in a single file. With a sealing key the
// file holds base64(nonce || ciphertext) instead of plain JSON.
type FileTokenStore struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

// NewFileTokenStore returns a store writing to path. An empty key disables sealing.
func NewFileTokenStore(path string, key []byte) (*FileTokenStore, error) {
	fs := &FileTokenStore{path: path}
	if len(key) > 0 {
		aead, err := NewAEAD(key)
		if err != nil {
			return nil, err
		}
		fs.aead = aead
	}
	return fs, nil
}

// Path returns the file location.
func (fs *FileTokenStore) Path() string { return fs.path }

// Load reads the tokens. A missing file yields zero Tokens and no error.
func (fs *FileTokenStore) Load() (Tokens, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}

	if fs.aead != nil {
		raw, err = fs.open(raw)
		if err != nil {
			return Tokens{}, err
		}
	}

	var t Tokens
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrCorruptTokenFile, err)
	}
	return t, nil
}

// Save writes the tokens with 0600 permissions, replacing the file atomically.
func (fs *FileTokenStore) Save(t Tokens) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if fs.aead != nil {
		data, err = fs.seal(data)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Clear removes the file. Removing a missing file is not an error.
func (fs *FileTokenStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (fs *FileTokenStore) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, fs.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ct := fs.aead.Seal(nonce, nonce, plain, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(ct)))
	base64.StdEncoding.Encode(out, ct)
	return out, nil
}

func (fs *FileTokenStore) open(encoded []byte) ([]byte, error) {
	ct := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(ct, encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTokenFile, err)
	}
	ct = ct[:n]
	if len(ct) < fs.aead.NonceSize() {
		return nil, fmt.Errorf("%w: too short", ErrCorruptTokenFile)
	}
	nonce := ct[:fs.aead.NonceSize()]
	plain, err := fs.aead.Open(nil, nonce, ct[fs.aead.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTokenFile, err)
	}
	return plain, nil
}
