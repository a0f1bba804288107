package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const bucketName = "receipts"

// DB defines the interface for receipt storage
type DB interface {
	// InsertReceipt assigns a new ID to a copy of receipt, saves it and returns the ID
	InsertReceipt(receipt *Receipt) (string, error)

	// GetReceipt retrieves a receipt by ID. Unknown IDs return an error wrapping ErrReceiptNotFound.
	GetReceipt(id string) (*Receipt, error)

	// Close closes the database connection
	Close() error
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random (version 4) UUIDs
type uuidGenerator struct{}

func (g uuidGenerator) Generate() string {
	return uuid.NewString()
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db  *bbolt.DB
	ids IDGenerator
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	return NewBoltDBWithIDs(path, uuidGenerator{})
}

// NewBoltDBWithIDs creates a BoltDB that draws IDs from ids
func NewBoltDBWithIDs(path string, ids IDGenerator) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db, ids: ids}, nil
}

// InsertReceipt saves a receipt under a freshly generated ID
func (b *BoltDB) InsertReceipt(receipt *Receipt) (string, error) {
	stored := receipt.clone()
	stored.ID = b.ids.Generate()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		key := []byte(stored.ID)
		if bucket.Get(key) != nil {
			return fmt.Errorf("receipt id collision: %s", stored.ID)
		}
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return notFound(id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
