package creditreq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AsString renders any cell value as a trimmed string. Floats that carry no
// fraction lose the ".0" tail Excel readers like to add.
func AsString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// NormalizeInvoice trims and upper-cases an invoice number.
func NormalizeInvoice(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeTicket trims and upper-cases a ticket number.
func NormalizeTicket(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeItem trims an item number and strips the trailing ".0" float
// artifact, so "8321.0" and "8321" compare equal.
func NormalizeItem(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return s
}

var qtyPrefix = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)

// ParseQuantity extracts the leading numeric prefix of values like "2EA".
// Blank or garbage input yields 0.
func ParseQuantity(s string) float64 {
	m := qtyPrefix.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return f
}

var moneyJunk = strings.NewReplacer("$", "", ",", "")

// ParseMoney strips currency formatting and parses a decimal amount.
// Blank or garbage input yields zero.
func ParseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(moneyJunk.Replace(s))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dateLayouts is the layout zoo the legacy spreadsheets produced.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01-02-2006",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"20060102",
}

// NormalizeDate parses any of the common layouts and emits YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// ParseDate is NormalizeDate without the re-formatting, for callers that need
// the time value. Returns the zero time when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
