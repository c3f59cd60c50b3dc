// internal/checkpoint/transcript.go
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
)

// Transcript archives live alongside the ledger, one zstd-compressed
// file per checkpoint, holding the raw agent event stream for that
// edit batch.

func (s *Store) transcriptPath(checkpointID string) string {
	return filepath.Join(s.dir, "transcripts", checkpointID+".zst")
}

// SaveTranscript compresses and stores the agent transcript for a checkpoint
func (s *Store) SaveTranscript(checkpointID string, data []byte) error {
	dir := filepath.Join(s.dir, "transcripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create transcripts dir: %w", err)
	}

	compressed := s.encoder.EncodeAll(data, nil)
	return os.WriteFile(s.transcriptPath(checkpointID), compressed, 0644)
}

// LoadTranscript returns the decompressed transcript for a checkpoint
func (s *Store) LoadTranscript(checkpointID string) ([]byte, error) {
	compressed, err := os.ReadFile(s.transcriptPath(checkpointID))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress transcript: %w", err)
	}

	return data, nil
}
