package receipt

import "strings"

// Submission is a receipt as clients send it, with every value as a string
type Submission struct {
	Retailer     string           `json:"retailer"`
	PurchaseDate string           `json:"purchaseDate"`
	PurchaseTime string           `json:"purchaseTime"`
	Items        []SubmissionItem `json:"items"`
	Total        string           `json:"total"`
}

// SubmissionItem is one line of a Submission
type SubmissionItem struct {
	ShortDescription *string `json:"shortDescription"`
	Price            string  `json:"price"`
}

// Receipt converts the submission into a Receipt. Empty values become nil
// fields so Validate can report them; values that don't parse return a
// *FormatError. A nil submission converts to a nil receipt.
func (s *Submission) Receipt() (*Receipt, error) {
	if s == nil {
		return nil, nil
	}

	r := &Receipt{Retailer: s.Retailer}

	if v := strings.TrimSpace(s.PurchaseDate); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			return nil, &FormatError{Field: "purchaseDate", Err: err}
		}
		r.PurchaseDate = &d
	}

	if v := strings.TrimSpace(s.PurchaseTime); v != "" {
		t, err := ParseClock(v)
		if err != nil {
			return nil, &FormatError{Field: "purchaseTime", Err: err}
		}
		r.PurchaseTime = &t
	}

	total, err := optionalAmount(s.Total)
	if err != nil {
		return nil, &FormatError{Field: "total", Err: err}
	}
	r.Total = total

	if s.Items != nil {
		r.Items = make([]Item, 0, len(s.Items))
	}
	for _, si := range s.Items {
		price, err := optionalAmount(si.Price)
		if err != nil {
			return nil, &FormatError{Field: "price", Err: err}
		}
		r.Items = append(r.Items, Item{ShortDescription: si.ShortDescription, Price: price})
	}

	return r, nil
}

func optionalAmount(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	a, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
