package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full-width letters and ideographic space", "ＡＢＣ　マンション", "ABCマンション"},
		{"already half-width", "ABCマンション", "ABCマンション"},
		{"full-width digits", "第１２コーポ", "第12コーポ"},
		{"mixed whitespace", " パーク\tハイツ \n", "パークハイツ"},
		{"katakana untouched", "メゾン・ド・ソレイユ", "メゾン・ド・ソレイユ"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNameMatchKey(t *testing.T) {
	assert.Equal(t, NameMatchKey("ＡＢＣ　マンション"), NameMatchKey("abc マンション"))
	assert.NotEqual(t, NameMatchKey("ABCマンション"), NameMatchKey("ABDマンション"))
}

func TestExternalKey(t *testing.T) {
	key := ExternalKey("ＡＢＣ　マンション", "東京都渋谷区神南１")
	assert.Len(t, key, 16)
	assert.Equal(t, key, ExternalKey("ABCマンション", "東京都 渋谷区 神南1"))
	assert.NotEqual(t, key, ExternalKey("ABCマンション", "東京都渋谷区神南2"))
	assert.Regexp(t, `^[0-9a-f]{16}$`, key)
}

func TestExternalKey_OrderMatters(t *testing.T) {
	// address is hashed first, so swapping fields yields a different key
	assert.NotEqual(t, ExternalKey("A", "B"), ExternalKey("B", "A"))
}

func TestRoomCode(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"jnc segment", "https://suumo.jp/chintai/jnc_000091234567/?bc=100", "jnc_000091234567"},
		{"jnc preferred over generic", "https://suumo.jp/chintai/bc_100123/jnc_ABC123/", "jnc_ABC123"},
		{"generic word_digits", "https://suumo.jp/chintai/bc_100123456/", "bc_100123456"},
		{"generic at end", "https://suumo.jp/chintai/nc_12345", "nc_12345"},
		{"no code", "https://suumo.jp/chintai/tokyo/sc_shibuya/", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoomCode(tt.url))
		})
	}
}
