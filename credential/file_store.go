package credential

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/mailnotify"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt is returned when an encrypted credential file cannot be opened with the configured key.
var ErrDecrypt = errors.New("failed to decrypt credentials")

// FileStore persists the pair as a JSON object at an afs URL (file://, mem://, s3://, gs://).
type FileStore struct {
	fs   afs.Service
	url  string
	key  *[32]byte
	mode os.FileMode
	mux  sync.Mutex
}

// FileOption mutates FileStore.
type FileOption func(s *FileStore)

// WithEncryptionKey enables at-rest encryption with NaCl secretbox.
func WithEncryptionKey(key [32]byte) FileOption {
	return func(s *FileStore) {
		s.key = &key
	}
}

// WithFileMode overrides the default 0600 mode of the credential file.
func WithFileMode(mode os.FileMode) FileOption {
	return func(s *FileStore) {
		s.mode = mode
	}
}

// WithFileService sets a custom afs service.
func WithFileService(fs afs.Service) FileOption {
	return func(s *FileStore) {
		s.fs = fs
	}
}

// NewFileStore creates a FileStore writing to URL.
func NewFileStore(URL string, opts ...FileOption) *FileStore {
	ret := &FileStore{fs: afs.New(), url: URL, mode: 0o600}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *FileStore) Load(ctx context.Context) (*Pair, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	values, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  values[mailnotify.AccessTokenKey],
		RefreshToken: values[mailnotify.RefreshTokenKey],
	}, nil
}

func (s *FileStore) Save(ctx context.Context, pair *Pair) error {
	if err := validate(pair); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	values := map[string]string{mailnotify.AccessTokenKey: pair.AccessToken}
	if pair.RefreshToken != "" {
		values[mailnotify.RefreshTokenKey] = pair.RefreshToken
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if s.key != nil {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}
	if err = s.fs.Upload(ctx, s.url, s.mode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save credentials to %v: %w", s.url, err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil || !exists {
		return err
	}
	if err = s.fs.Delete(ctx, s.url); err != nil {
		return fmt.Errorf("failed to clear credentials at %v: %w", s.url, err)
	}
	return nil
}

func (s *FileStore) read(ctx context.Context) (map[string]string, error) {
	values := map[string]string{}
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if !exists {
		return values, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from %v: %w", s.url, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	if s.key != nil {
		if data, err = s.open(data); err != nil {
			return nil, err
		}
	}
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid credential file %v: %w", s.url, err)
	}
	return values, nil
}

// seal encrypts data as base64(nonce || box)
func (s *FileStore) seal(data []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], data, &nonce, s.key)
	ret := make([]byte, base64.StdEncoding.EncodedLen(len(box)))
	base64.StdEncoding.Encode(ret, box)
	return ret, nil
}

func (s *FileStore) open(data []byte) ([]byte, error) {
	box := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(box, bytes.TrimSpace(data))
	if err != nil {
		return nil, ErrDecrypt
	}
	box = box[:n]
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// ParseKey decodes a base64 encoded 32 byte encryption key.
func ParseKey(encoded string) ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return key, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("invalid encryption key: expected %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
