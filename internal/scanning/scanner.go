package scanning

// ReceiptData contains the fields extracted from a receipt image. Values
// are strings in the same shapes the JSON submission API accepts; a field
// the model could not read is left empty.
type ReceiptData struct {
	Retailer     string     `json:"retailer"`
	PurchaseDate string     `json:"purchaseDate"` // YYYY-MM-DD
	PurchaseTime string     `json:"purchaseTime"` // HH:MM, 24-hour
	Items        []ItemData `json:"items"`
	Total        string     `json:"total"`
}

// ItemData is one extracted line item
type ItemData struct {
	ShortDescription string `json:"shortDescription"`
	Price            string `json:"price"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts its contents
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
