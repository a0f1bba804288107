package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/receipt-processor/internal/scanning"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// Service validates, stores and scores receipts
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. A nil scanner disables ScanReceipt.
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing.
// idGen names archived scan images; receipt IDs always come from the DB.
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ProcessReceipt validates a receipt and stores it, returning the new ID.
// Invalid receipts return a *ValidationError and never reach the database.
func (s *Service) ProcessReceipt(receipt *Receipt) (string, error) {
	if err := Validate(receipt); err != nil {
		return "", err
	}

	toStore := receipt.clone()
	toStore.CreatedAt = s.timeSource.Now()

	id, err := s.db.InsertReceipt(toStore)
	if err != nil {
		return "", fmt.Errorf("saving receipt to database: %w", err)
	}
	return id, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if errors.Is(err, ErrReceiptNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// GetPoints scores the stored receipt with the given ID
func (s *Service) GetPoints(id string) (int, error) {
	receipt, err := s.GetReceipt(id)
	if err != nil {
		return 0, err
	}
	return Points(receipt), nil
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ScanReceipt archives an uploaded receipt image, extracts its contents with
// the scanner and processes the result like a JSON submission. The archived
// file is removed again if the receipt is not stored.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (string, error) {
	if s.scanner == nil {
		return "", ErrScanningDisabled
	}

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename)), data)
	if err != nil {
		return "", fmt.Errorf("saving file: %w", err)
	}

	id, err := s.scanAndProcess(savedPath, data, contentType)
	if err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return "", err
	}
	return id, nil
}

func (s *Service) scanAndProcess(savedPath string, data []byte, contentType string) (string, error) {
	receiptData, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", savedPath,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return "", fmt.Errorf("scanning receipt: %w", err)
	}

	receipt, err := submissionFromScan(receiptData).Receipt()
	if err != nil {
		return "", err
	}
	receipt.Filename = savedPath
	receipt.ContentType = contentType

	return s.ProcessReceipt(receipt)
}

func submissionFromScan(data *scanning.ReceiptData) *Submission {
	sub := &Submission{
		Retailer:     data.Retailer,
		PurchaseDate: data.PurchaseDate,
		PurchaseTime: data.PurchaseTime,
		Total:        data.Total,
		Items:        make([]SubmissionItem, 0, len(data.Items)),
	}
	for _, item := range data.Items {
		description := item.ShortDescription
		sub.Items = append(sub.Items, SubmissionItem{ShortDescription: &description, Price: item.Price})
	}
	return sub
}

// GetReceiptFile retrieves the archived image of a scanned receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.GetReceipt(id)
	if err != nil {
		return nil, "", err
	}
	if receipt.Filename == "" || s.storage == nil {
		return nil, "", &NotFoundError{ID: id}
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}
