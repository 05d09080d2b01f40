package store

import (
	"errors"
	"sync"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrStoreClosed is returned by Save after Close.
var ErrStoreClosed = errors.New("store is closed")

// MemoryStore keeps the encoded document in memory, the way a browser key-value
// store would. It is the store used in tests.
type MemoryStore struct {
	mu       sync.Mutex
	raw      []byte
	writeErr error
	closed   bool
	now      func() time.Time
	logger   *logrus.Logger
}

func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{now: time.Now, logger: logger}
}

// SetRaw replaces the stored bytes verbatim, valid or not.
func (m *MemoryStore) SetRaw(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append([]byte(nil), raw...)
}

// Raw returns a copy of the stored bytes.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.raw...)
}

// FailWrites makes every following Save fail with err; nil restores writes.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MemoryStore) Load() *models.Document {
	m.mu.Lock()
	raw := m.raw
	m.mu.Unlock()

	if len(raw) > 0 {
		doc, err := decodeDocument(raw)
		if err == nil {
			return doc
		}
		m.logger.WithError(err).Warn("Stored document is unreadable, starting with an empty ledger")
	}

	doc := models.NewDocument(m.now())
	_ = m.Save(doc)
	return doc
}

func (m *MemoryStore) Save(doc *models.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		m.logger.WithError(err).Error("Failed to save document")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.logger.WithError(ErrStoreClosed).Error("Failed to save document")
		return ErrStoreClosed
	}
	if m.writeErr != nil {
		m.logger.WithError(m.writeErr).Error("Failed to save document")
		return m.writeErr
	}
	m.raw = data
	m.logger.WithField("bytes", len(data)).Debug("Document saved")
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
