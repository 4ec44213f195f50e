package creditreq

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAsString(t *testing.T) {
	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "abc", AsString("  abc  "))
	assert.Equal(t, "8321", AsString(float64(8321)))
	assert.Equal(t, "8321.5", AsString(8321.5))
	assert.Equal(t, "42", AsString(42))
	assert.Equal(t, "true", AsString(true))
}

func TestNormalizeItem(t *testing.T) {
	assert.Equal(t, "8321", NormalizeItem("8321.0"))
	assert.Equal(t, "8321", NormalizeItem(" 8321 "))
	assert.Equal(t, "8321.5", NormalizeItem("8321.5"))
	assert.Equal(t, "AB-100", NormalizeItem("AB-100"))
	assert.Equal(t, "", NormalizeItem("   "))
}

func TestNormalizeInvoice(t *testing.T) {
	assert.Equal(t, "INV-001", NormalizeInvoice(" inv-001 "))
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, 2.0, ParseQuantity("2EA"))
	assert.Equal(t, 1.5, ParseQuantity("1.5 cases"))
	assert.Equal(t, 3.0, ParseQuantity(" 3"))
	assert.Equal(t, 0.0, ParseQuantity(""))
	assert.Equal(t, 0.0, ParseQuantity("each"))
}

func TestParseMoney(t *testing.T) {
	assert.True(t, ParseMoney("$1,234.56").Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, ParseMoney("12").Equal(decimal.NewFromInt(12)))
	assert.True(t, ParseMoney("").IsZero())
	assert.True(t, ParseMoney("n/a").IsZero())
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2026-03-05":          "2026-03-05",
		"03/05/2026":          "2026-03-05",
		"3/5/2026":            "2026-03-05",
		"Mar 5, 2026":         "2026-03-05",
		"20260305":            "2026-03-05",
		"2026-03-05 10:11:12": "2026-03-05",
	}
	for in, want := range cases {
		got, err := NormalizeDate(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeDate("")
	assert.Error(t, err)
	_, err = NormalizeDate("not a date")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2026-01-15")
	assert.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	_, ok = ParseDate("")
	assert.False(t, ok)
}
