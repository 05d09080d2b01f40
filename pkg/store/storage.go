package store

import (
	"encoding/json"
	"fmt"

	"github.com/mcclellann/lendbook/pkg/models"
)

// DocumentKey is the key the ledger document is stored under.
const DocumentKey = "lendbook_data"

// Storage is the persistence contract the ledger repository depends on.
//
// Load never fails: missing or unreadable data yields a freshly initialized
// empty document, which is persisted before being returned. Save reports
// write failures after logging them; callers may ignore the error without
// corrupting in-memory state. Consecutive saves are not atomic as a group.
type Storage interface {
	Load() *models.Document
	Save(doc *models.Document) error
	Close() error
}

func encodeDocument(doc *models.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}
