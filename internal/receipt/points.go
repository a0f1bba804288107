package receipt

import (
	"strings"
	"unicode/utf16"
)

var (
	windowStart = Clock{Hour: 14}
	windowEnd   = Clock{Hour: 16}
)

// rules are summed in this order
var rules = []func(r *Receipt) int{
	retailerPoints,
	roundDollarPoints,
	quarterPoints,
	itemPairPoints,
	descriptionPoints,
	oddDayPoints,
	afternoonPoints,
}

// Points scores a validated receipt. It never modifies r.
func Points(r *Receipt) int {
	points := 0
	for _, rule := range rules {
		points += rule(r)
	}
	return points
}

// retailerPoints gives one point per ASCII letter or digit in the retailer name
func retailerPoints(r *Receipt) int {
	n := 0
	for _, c := range r.Retailer {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			n++
		}
	}
	return n
}

func roundDollarPoints(r *Receipt) int {
	if r.Total != nil && r.Total.IsWhole() {
		return 50
	}
	return 0
}

func quarterPoints(r *Receipt) int {
	if r.Total != nil && r.Total.IsMultipleOf(Amount{d: quarter}) {
		return 25
	}
	return 0
}

func itemPairPoints(r *Receipt) int {
	return len(r.Items) / 2 * 5
}

// descriptionPoints adds ceil(price * 0.2) for every item whose trimmed
// description length divides by three. An empty description counts; a
// missing one scores nothing.
func descriptionPoints(r *Receipt) int {
	points := 0
	for _, item := range r.Items {
		if item.Price == nil || item.ShortDescription == nil || trimmedLength(*item.ShortDescription)%3 != 0 {
			continue
		}
		points += int(item.Price.Mul(Amount{d: bonus}).RoundUp().IntPart())
	}
	return points
}

// trimmedLength strips control characters and spaces from both ends and
// counts UTF-16 code units.
func trimmedLength(s string) int {
	trimmed := strings.TrimFunc(s, isControlOrSpace)
	return len(utf16.Encode([]rune(trimmed)))
}

// isControlOrSpace matches the space and every control character below it.
// Unicode spaces such as U+00A0 don't match.
func isControlOrSpace(c rune) bool {
	return c <= ' '
}

func oddDayPoints(r *Receipt) int {
	if r.PurchaseDate != nil && r.PurchaseDate.Day%2 != 0 {
		return 6
	}
	return 0
}

// afternoonPoints rewards purchases strictly between 14:00 and 16:00
func afternoonPoints(r *Receipt) int {
	t := r.PurchaseTime
	if t != nil && t.After(windowStart) && t.Before(windowEnd) {
		return 10
	}
	return 0
}
