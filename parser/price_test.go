package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"man-yen decimal", "6.9万円", intPtr(69000)},
		{"man-yen integer", "12万円", intPtr(120000)},
		{"man-yen rounding", "7.35万円", intPtr(73500)},
		{"man-yen with separators", "1,200万円", intPtr(12000000)},
		{"man-yen separators and decimal", "1,234.5万円", intPtr(12345000)},
		{"yen", "5000円", intPtr(5000)},
		{"yen with separators", "10,000円", intPtr(10000)},
		{"surrounding space", "  8000円 ", intPtr(8000)},
		{"dash", "-", intPtr(0)},
		{"none", "なし", intPtr(0)},
		{"none with prefix", "敷金なし", intPtr(0)},
		{"month count", "1ヶ月", nil},
		{"garbage", "お問い合わせください", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePrice(tt.input))
		})
	}
}

func TestParseMonths(t *testing.T) {
	m, ok := ParseMonths("1ヶ月")
	assert.True(t, ok)
	assert.Equal(t, 1.0, m)

	m, ok = ParseMonths("敷1.5ヶ月")
	assert.True(t, ok)
	assert.Equal(t, 1.5, m)

	_, ok = ParseMonths("5000円")
	assert.False(t, ok)
}

func TestParseMonthlyPrice(t *testing.T) {
	rent := intPtr(80000)
	assert.Equal(t, intPtr(80000), parseMonthlyPrice("1ヶ月", rent))
	assert.Equal(t, intPtr(120000), parseMonthlyPrice("1.5ヶ月", rent))
	assert.Equal(t, intPtr(50000), parseMonthlyPrice("5万円", rent))
	assert.Equal(t, intPtr(0), parseMonthlyPrice("-", rent))
	assert.Nil(t, parseMonthlyPrice("1ヶ月", nil))
}
