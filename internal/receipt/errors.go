package receipt

import (
	"errors"
	"fmt"
)

var (
	// ErrReceiptNotFound is returned by DB implementations for unknown ids
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrScanningDisabled is returned when the service has no scanner
	ErrScanningDisabled = errors.New("receipt scanning is not configured")
)

// Reason identifies why a receipt was rejected
type Reason string

const (
	ReasonNullReceipt          Reason = "null-receipt"
	ReasonBlankRetailer        Reason = "blank-retailer"
	ReasonMissingDate          Reason = "missing-date"
	ReasonMissingTime          Reason = "missing-time"
	ReasonEmptyItems           Reason = "empty-items"
	ReasonNonPositiveTotal     Reason = "non-positive-total"
	ReasonNonPositiveItemPrice Reason = "non-positive-item-price"
)

var reasonMessages = map[Reason]string{
	ReasonNullReceipt:          "Receipt cannot be null",
	ReasonBlankRetailer:        "Retailer name must not be blank",
	ReasonMissingDate:          "Purchase date must not be null",
	ReasonMissingTime:          "Purchase time must not be null",
	ReasonEmptyItems:           "Receipt must have at least one item",
	ReasonNonPositiveTotal:     "Total amount must be greater than zero",
	ReasonNonPositiveItemPrice: "Price of item must be greater than zero",
}

// Message returns the user-facing text for the reason
func (r Reason) Message() string {
	return reasonMessages[r]
}

// ValidationError reports a receipt that failed validation
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return "The receipt is invalid : " + e.Reason.Message()
}

// NotFoundError reports a points query for an id that was never issued
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "No receipt found for that id:" + e.ID
}

// FormatError reports a submission field that could not be parsed
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
