package annotation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"BlockScreener/internal/model"
)

// LoadFile reads annotations from a JSON file keyed by symbol code. A missing
// file yields an empty set; a malformed one is an error.
func LoadFile(filePath string) (map[string]model.Annotation, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.Annotation{}, nil
		}
		return nil, err
	}
	notes := map[string]model.Annotation{}
	if len(data) == 0 {
		return notes, nil
	}
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return notes, nil
}

// SaveFile writes annotations through a temp file and rename so a crash never
// leaves a truncated document behind.
func SaveFile(filePath string, notes map[string]model.Annotation) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filePath)
}
