package app

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ctorMu sync.Mutex
	ctors  = make(map[string]FileLoaderCtor)
)

func init() {
	RegisterFileLoaderCtor("", newLocalLoader)
	RegisterFileLoaderCtor("file", newLocalLoader)
}

// RegisterFileLoaderCtor registers a FileLoader for the specified scheme.
func RegisterFileLoaderCtor(scheme string, ctr FileLoaderCtor) {
	ctorMu.Lock()
	defer ctorMu.Unlock()

	_, exists := ctors[scheme]
	if exists {
		panic(fmt.Sprintf("FileLoader already registered for scheme '%s'", scheme))
	}

	ctors[scheme] = ctr
}

// FileLoaderCtor constructs a FileLoader.
type FileLoaderCtor func() (FileLoader, error)

// FileLoader loads files at a specified URL.
type FileLoader interface {
	Load(url *url.URL) ([]byte, error)
}

// LoadFile loads a file at the specified URL using the corresponding
// registered FileLoader. If no scheme is specified, the local loader is used.
func LoadFile(fileURL string) ([]byte, error) {
	ctorMu.Lock()
	defer ctorMu.Unlock()

	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	ctr, exists := ctors[u.Scheme]
	if !exists {
		return nil, errors.Errorf("no file loader for %s", u.Scheme)
	}

	l, err := ctr()
	if err != nil {
		return nil, errors.Wrapf(err, "failed get loader for '%s'", fileURL)
	}

	return l.Load(u)
}

// LoadKeypair loads a private key from a file. Both the JSON byte array
// written by the Solana CLI and a base58 encoded key are accepted.
func LoadKeypair(fileURL string) (ed25519.PrivateKey, error) {
	data, err := LoadFile(fileURL)
	if err != nil {
		return nil, err
	}
	return ParseKeypair(data)
}

// ParseKeypair decodes a private key in either supported encoding.
func ParseKeypair(data []byte) (ed25519.PrivateKey, error) {
	trimmed := strings.TrimSpace(string(data))

	var raw []byte
	if strings.HasPrefix(trimmed, "[") {
		var values []int
		if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
			return nil, errors.Wrap(err, "invalid keypair json")
		}

		raw = make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("invalid keypair byte at %d", i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(trimmed)
		if err != nil {
			return nil, errors.Wrap(err, "invalid base58 keypair")
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

type localLoader struct{}

func newLocalLoader() (FileLoader, error) {
	return localLoader{}, nil
}

func (localLoader) Load(u *url.URL) ([]byte, error) {
	path := u.Path
	if len(u.Host) > 0 {
		path = u.Host + path
	}
	return os.ReadFile(path)
}
