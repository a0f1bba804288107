package receipt

import "strings"

// check reports whether a receipt passes one rule
type check struct {
	reason Reason
	ok     func(r *Receipt) bool
}

// checks run in order and the first failure wins. Field presence comes
// before the business rules.
var checks = []check{
	{ReasonBlankRetailer, func(r *Receipt) bool { return strings.TrimFunc(r.Retailer, isControlOrSpace) != "" }},
	{ReasonMissingDate, func(r *Receipt) bool { return r.PurchaseDate != nil }},
	{ReasonMissingTime, func(r *Receipt) bool { return r.PurchaseTime != nil }},
	{ReasonEmptyItems, func(r *Receipt) bool { return len(r.Items) > 0 }},
	{ReasonNonPositiveTotal, func(r *Receipt) bool {
		return r.Total != nil && r.Total.IsPositive() && !r.Total.LessThan(Amount{d: minimum})
	}},
	{ReasonNonPositiveItemPrice, func(r *Receipt) bool {
		for _, item := range r.Items {
			if item.Price == nil || !item.Price.IsPositive() {
				return false
			}
		}
		return true
	}},
}

// Validate returns a *ValidationError for the first rule r breaks, or nil
func Validate(r *Receipt) error {
	if r == nil {
		return &ValidationError{Reason: ReasonNullReceipt}
	}
	for _, c := range checks {
		if !c.ok(r) {
			return &ValidationError{Reason: c.reason}
		}
	}
	return nil
}
