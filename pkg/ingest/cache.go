package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpuig/rentagpt/internal/models"
)

// LoadDocumentCache reads the serialized document list written by a
// previous run. The second return is false when no cache exists yet.
func LoadDocumentCache(path string) ([]models.Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read document cache: %w", err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, false, fmt.Errorf("failed to decode document cache: %w", err)
	}
	return docs, true, nil
}

// SaveDocumentCache writes the document list so later runs skip the
// fetch stage entirely.
func SaveDocumentCache(path string, docs []models.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode document cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write document cache: %w", err)
	}
	return os.Rename(tmp, path)
}
