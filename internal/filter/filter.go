// Package filter implements the eligibility rules applied to fetched
// announcements before they are stored.
package filter

import (
	"strconv"
	"strings"
)

// Rules holds the configured eligibility criteria. The zero value rejects
// everything (no include keywords means no title can qualify).
type Rules struct {
	IncludeKeywords []string
	ExcludeKeywords []string
	MinimumPrice    int64
}

// Eligible reports whether an announcement qualifies for storage.
//
// Checks run in order and short-circuit:
//  1. any exclude keyword in the title rejects, regardless of the rest
//  2. the title must contain at least one include keyword
//  3. a parsable price below MinimumPrice rejects; an unparsable price
//     passes this check (the announcement is kept for human review rather
//     than dropped on bad upstream data)
//
// Keyword matching is a case-sensitive substring match.
func (r Rules) Eligible(title, priceRaw string) bool {
	for _, kw := range r.ExcludeKeywords {
		if kw != "" && strings.Contains(title, kw) {
			return false
		}
	}

	included := false
	for _, kw := range r.IncludeKeywords {
		if kw != "" && strings.Contains(title, kw) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	if price, err := parsePrice(priceRaw); err == nil && price < r.MinimumPrice {
		return false
	}
	return true
}

// FormatPrice renders a raw price as a thousands-separated display string.
// Unparsable input is returned unchanged.
func FormatPrice(priceRaw string) string {
	price, err := parsePrice(priceRaw)
	if err != nil {
		return priceRaw
	}

	s := strconv.FormatInt(price, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func parsePrice(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
