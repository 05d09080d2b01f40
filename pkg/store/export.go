package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
)

// BackupFileName returns the export file name for the given day.
func BackupFileName(now time.Time) string {
	return fmt.Sprintf("lendbook-backup-%s.json", now.Format("2006-01-02"))
}

// Export writes the document verbatim as indented JSON.
func Export(w io.Writer, doc *models.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to export document: %w", err)
	}
	return nil
}

// ExportFile writes a backup of the document into dir and returns its path.
func ExportFile(dir string, doc *models.Document, now time.Time) (string, error) {
	path := filepath.Join(dir, BackupFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	if err := Export(f, doc); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}
	return path, nil
}

// Decode reads a document previously written by Export.
func Decode(r io.Reader) (*models.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return decodeDocument(data)
}
