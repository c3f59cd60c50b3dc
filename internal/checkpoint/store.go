// internal/checkpoint/store.go
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const ledgerFile = "checkpoints.json"

// Store persists the checkpoint ledger as a single JSON document under
// the project's state directory. It performs no locking; all access is
// serialized by the coordinator's command queue.
type Store struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore creates a Store rooted at the given state directory
func NewStore(dir string, compressionLevel int) *Store {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	decoder, _ := zstd.NewReader(nil)

	return &Store{
		dir:     dir,
		encoder: encoder,
		decoder: decoder,
	}
}

// Dir returns the state directory
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the state directory if it does not exist
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

// Exists reports whether a ledger document has been written
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, ledgerFile))
	return err == nil
}

// Load returns the persisted ledger. A missing or unreadable document
// yields an empty history, never an error.
func (s *Store) Load() *History {
	data, err := os.ReadFile(filepath.Join(s.dir, ledgerFile))
	if err != nil {
		return &History{Checkpoints: []Checkpoint{}}
	}

	var history History
	if err := json.Unmarshal(data, &history); err != nil {
		return &History{Checkpoints: []Checkpoint{}}
	}

	if history.Checkpoints == nil {
		history.Checkpoints = []Checkpoint{}
	}

	return &history
}

// Save writes the full ledger back. The write goes through a temp file
// and rename so a crash never leaves a truncated document.
func (s *Store) Save(history *History) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, ledgerFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
