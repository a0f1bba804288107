package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	dateFormats = []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		"01/02/06",
	}
	timeFormats = []string{
		"15:04",
		"15:04:05",
		"3:04 PM",
		"3:04PM",
		"3:04:05 PM",
	}
)

// rawReceipt mirrors the model's JSON. Amounts may come back as numbers or strings.
type rawReceipt struct {
	Retailer     string              `json:"retailer"`
	PurchaseDate string              `json:"purchaseDate"`
	PurchaseTime string              `json:"purchaseTime"`
	Items        []rawItem           `json:"items"`
	Total        decimal.NullDecimal `json:"total"`
}

type rawItem struct {
	ShortDescription string              `json:"shortDescription"`
	Price            decimal.NullDecimal `json:"price"`
}

// parseReceiptJSON parses the JSON response from a vision model
func parseReceiptJSON(text string) (*ReceiptData, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var raw rawReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data := &ReceiptData{
		Retailer:     strings.TrimSpace(raw.Retailer),
		PurchaseDate: normalizeDate(raw.PurchaseDate),
		PurchaseTime: normalizeTime(raw.PurchaseTime),
		Total:        amountString(raw.Total),
		Items:        make([]ItemData, 0, len(raw.Items)),
	}
	for _, item := range raw.Items {
		data.Items = append(data.Items, ItemData{
			ShortDescription: item.ShortDescription,
			Price:            amountString(item.Price),
		})
	}

	return data, nil
}

// Unreadable dates and times become empty so validation reports them as missing.
func normalizeDate(value string) string {
	t, ok := parseFirst(value, dateFormats)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// normalizeTime keeps seconds only when the receipt printed them
func normalizeTime(value string) string {
	t, ok := parseFirst(value, timeFormats)
	if !ok {
		return ""
	}
	if t.Second() != 0 {
		return t.Format("15:04:05")
	}
	return t.Format("15:04")
}

func parseFirst(value string, formats []string) (time.Time, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return time.Time{}, false
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func amountString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
