package receipt

import "time"

// Receipt represents a purchase receipt. Pointer fields are nil when the
// submitter left them out.
type Receipt struct {
	ID           string    `json:"id"`
	Retailer     string    `json:"retailer"`
	PurchaseDate *Date     `json:"purchaseDate"`
	PurchaseTime *Clock    `json:"purchaseTime"`
	Total        *Amount   `json:"total"`
	Items        []Item    `json:"items"`
	Filename     string    `json:"filename,omitempty"`     // Archived scan image, if the receipt was scanned
	ContentType  string    `json:"content_type,omitempty"` // MIME type of the archived image
	CreatedAt    time.Time `json:"created_at"`
}

// Item is a single line on a receipt. ShortDescription is nil when the
// submitter sent none, which is not the same as an empty description.
type Item struct {
	ShortDescription *string `json:"shortDescription"`
	Price            *Amount `json:"price"`
}

// clone returns a deep copy so stored receipts can't be changed through a caller's pointer
func (r *Receipt) clone() *Receipt {
	c := *r
	if r.PurchaseDate != nil {
		d := *r.PurchaseDate
		c.PurchaseDate = &d
	}
	if r.PurchaseTime != nil {
		t := *r.PurchaseTime
		c.PurchaseTime = &t
	}
	if r.Total != nil {
		a := *r.Total
		c.Total = &a
	}
	if r.Items != nil {
		c.Items = make([]Item, len(r.Items))
		for i, item := range r.Items {
			c.Items[i] = item
			if item.ShortDescription != nil {
				d := *item.ShortDescription
				c.Items[i].ShortDescription = &d
			}
			if item.Price != nil {
				p := *item.Price
				c.Items[i].Price = &p
			}
		}
	}
	return &c
}
