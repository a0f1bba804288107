package receipt

import (
	"fmt"
	"sync"
)

// MemoryDB implements the DB interface with a map. Contents last as long as the process.
type MemoryDB struct {
	mu       sync.RWMutex
	receipts map[string]*Receipt
	ids      IDGenerator
}

// NewMemoryDB creates an empty MemoryDB
func NewMemoryDB() *MemoryDB {
	return NewMemoryDBWithIDs(uuidGenerator{})
}

// NewMemoryDBWithIDs creates an empty MemoryDB that draws IDs from ids
func NewMemoryDBWithIDs(ids IDGenerator) *MemoryDB {
	return &MemoryDB{
		receipts: make(map[string]*Receipt),
		ids:      ids,
	}
}

// InsertReceipt saves a copy of receipt under a freshly generated ID
func (m *MemoryDB) InsertReceipt(receipt *Receipt) (string, error) {
	stored := receipt.clone()
	stored.ID = m.ids.Generate()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[stored.ID]; ok {
		return "", fmt.Errorf("receipt id collision: %s", stored.ID)
	}
	m.receipts[stored.ID] = stored
	return stored.ID, nil
}

// GetReceipt returns a copy of the stored receipt
func (m *MemoryDB) GetReceipt(id string) (*Receipt, error) {
	m.mu.RLock()
	receipt, ok := m.receipts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return receipt.clone(), nil
}

// Close is a no-op
func (m *MemoryDB) Close() error {
	return nil
}
