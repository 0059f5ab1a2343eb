package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalManifest is the client-side record of the last manifest this
// install root was successfully synced to. Unlike the remote
// manifest, it additionally records when the sync completed and which
// profile produced it, so a later run can detect a profile switch.
type LocalManifest struct {
	Manifest   *Manifest `json:"manifest"`
	VerifiedAt time.Time `json:"verified_at"`
	ProfileKey string    `json:"profile_key"`
}

// LoadLocal reads a local manifest from path. A missing file is not an
// error: it returns (nil, nil), since an install root with no local
// manifest simply hasn't completed a sync yet.
func LoadLocal(path string) (*LocalManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("manifest: reading local manifest: %w", err)
	}

	var lm LocalManifest
	if err := json.Unmarshal(data, &lm); err != nil {
		return nil, &DecodeError{Reason: "malformed local manifest JSON", Cause: err}
	}
	if lm.Manifest != nil {
		lm.Manifest.reindex()
	}
	return &lm, nil
}

// SaveLocal writes the local manifest atomically: it is staged to a
// temp file in the same directory and renamed into place, so a crash
// mid-write never leaves a half-written manifest behind. Callers must
// only call this once every file's rename to its final path has
// already succeeded.
func SaveLocal(path string, lm *LocalManifest) error {
	data, err := json.MarshalIndent(lm, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encoding local manifest: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".local-manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("manifest: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("manifest: renaming temp file into place: %w", err)
	}
	return nil
}
