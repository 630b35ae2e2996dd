package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// manifestFile marks a collection as fully built. It is written last,
// after every chunk has been inserted and persisted, so its presence
// is the completion signal the indexer and the server both check.
const manifestFile = "manifest.json"

type Manifest struct {
	Collection     string    `json:"collection"`
	Dimensions     int       `json:"dimensions"`
	Chunks         int       `json:"chunks"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IndexExists reports whether the collection at dir has been built.
func IndexExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestFile))
	return err == nil
}

// WriteManifest atomically writes the completion marker for dir.
func WriteManifest(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, manifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadManifest loads the completion marker for dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}
