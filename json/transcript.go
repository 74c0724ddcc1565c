package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cashflow/steward"
)

// envelope is the v1 file format for a persisted transcript.
type envelope struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []turnDTO `json:"turns"`
}

// MarshalTranscript serializes a Transcript to JSON in v1 envelope format.
func MarshalTranscript(t steward.Transcript) ([]byte, error) {
	return json.MarshalIndent(envelope{
		Version:   1,
		ID:        t.ID,
		UserID:    t.UserID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Turns:     turnsToDTO(t.Turns),
	}, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from JSON in v1 envelope format.
func UnmarshalTranscript(data []byte) (steward.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return steward.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return steward.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	return steward.Transcript{
		ID:        env.ID,
		UserID:    env.UserID,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Turns:     turnsFromDTO(env.Turns),
	}, nil
}

// Save writes a Transcript to a JSON file, creating parent directories as
// needed. The file is replaced atomically.
func Save(path string, t steward.Transcript) error {
	data, err := MarshalTranscript(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (steward.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return steward.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}
