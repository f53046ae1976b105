// Package blobstore implements the engine's content-addressed byte store:
// put/get/has keyed by a 32-byte hash, zstd-compressed on disk under a
// two-character fan-out directory, with an in-memory write-through cache
// for hot blobs.
package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/log"
)

// HashAlgorithm selects the content-addressing hash, fixed at Open.
type HashAlgorithm string

const (
	HashBlake3 HashAlgorithm = "blake3"
	HashSHA256 HashAlgorithm = "sha256"
)

// Hash is a hex-encoded content hash, the store's key type.
type Hash string

// Store is a content-addressed, compressed byte store rooted at a
// directory. The zero value is not usable; construct with Open.
type Store struct {
	root string
	algo HashAlgorithm

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	cache *lru.Cache[Hash, []byte]

	mu sync.Mutex // one store-wide lock, taken by every Put and Has
}

// Options configures Open.
type Options struct {
	Algorithm    HashAlgorithm
	CacheEntries int
}

// Open opens (creating if absent) a blob store rooted at dir.
func Open(dir string, opts Options) (*Store, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = HashBlake3
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 2048
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, engerr.Wrap("blobstore.Open", engerr.IO, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, engerr.Wrap("blobstore.Open", engerr.IO, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, engerr.Wrap("blobstore.Open", engerr.IO, err)
	}
	cache, err := lru.New[Hash, []byte](opts.CacheEntries)
	if err != nil {
		return nil, engerr.Wrap("blobstore.Open", engerr.IO, err)
	}
	return &Store{
		root:    dir,
		algo:    opts.Algorithm,
		encoder: enc,
		decoder: dec,
		cache:   cache,
	}, nil
}

// Close releases the store's compressor resources.
func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return nil
}

func (s *Store) hash(data []byte) Hash {
	switch s.algo {
	case HashSHA256:
		sum := sha256.Sum256(data)
		return Hash(hex.EncodeToString(sum[:]))
	default:
		sum := blake3.Sum256(data)
		return Hash(hex.EncodeToString(sum[:]))
	}
}

func (s *Store) path(h Hash) string {
	str := string(h)
	if len(str) < 2 {
		return filepath.Join(s.root, "blobs", "__", str)
	}
	return filepath.Join(s.root, "blobs", str[:2], str[2:])
}

// Put computes bytes' hash and, if absent, writes the compressed bytes to
// disk under that hash. Put is idempotent: putting the same bytes twice
// returns the same hash without rewriting.
func (s *Store) Put(data []byte) (Hash, error) {
	h := s.hash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.hasLocked(h); err != nil {
		return "", err
	} else if ok {
		return h, nil
	}

	p := s.path(h)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", engerr.Wrap("blobstore.Put", engerr.IO, err)
	}

	compressed := s.encoder.EncodeAll(data, nil)

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return "", engerr.Wrap("blobstore.Put", engerr.IO, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", engerr.Wrap("blobstore.Put", engerr.IO, err)
	}

	s.cache.Add(h, data)
	log.WithComponent("blobstore").Debug().Str("hash", string(h)).Int("bytes", len(data)).Msg("blob written")
	return h, nil
}

// Get returns the bytes stored under h, or engerr.NotFound.
func (s *Store) Get(h Hash) ([]byte, error) {
	if data, ok := s.cache.Get(h); ok {
		return data, nil
	}

	p := s.path(h)
	compressed, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engerr.New("blobstore.Get", engerr.NotFound, string(h))
		}
		return nil, engerr.Wrap("blobstore.Get", engerr.IO, err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, engerr.Wrap("blobstore.Get", engerr.IO, err)
	}
	s.cache.Add(h, data)
	return data, nil
}

// Has reports whether h is present, without decompressing it.
func (s *Store) Has(h Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLocked(h)
}

func (s *Store) hasLocked(h Hash) (bool, error) {
	if s.cache.Contains(h) {
		return true, nil
	}
	_, err := os.Stat(s.path(h))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, engerr.Wrap("blobstore.Has", engerr.IO, err)
}

// Reader returns a ReadCloser over the decompressed bytes of the blob
// under h. The whole blob is read into memory first (via Get); it is not
// streamed from disk.
func (s *Store) Reader(h Hash) (io.ReadCloser, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
