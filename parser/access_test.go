package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suumo_crawler/models"
)

func TestParseAccess_TwoLines(t *testing.T) {
	entries := ParseAccess("JR山手線/渋谷駅 歩5分 / 東京メトロ銀座線/渋谷駅 歩5分")
	require.Len(t, entries, 2)

	assert.Equal(t, "JR山手線", entries[0].LineName)
	assert.Equal(t, "東京メトロ銀座線", entries[1].LineName)
	for _, e := range entries {
		assert.Equal(t, "渋谷", e.StationName)
		require.NotNil(t, e.WalkingMinutes)
		assert.Equal(t, 5, *e.WalkingMinutes)
	}
	assert.Equal(t, "JR山手線/渋谷駅 歩5分", entries[0].RawText)
}

func TestParseAccess_Variants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		line     string
		station  string
		minutes  *int
		expected int
	}{
		{"toho prefix", "東急東横線/中目黒駅 徒歩8分", "東急東横線", "中目黒", intPtr(8), 1},
		{"full-width slash", "京王井の頭線／下北沢駅 歩3分", "京王井の頭線", "下北沢", intPtr(3), 1},
		{"bus only", "ＪＲ中央線/三鷹駅 バス10分", "ＪＲ中央線", "三鷹", nil, 1},
		{"no station suffix", "小田急線/経堂 歩12分", "小田急線", "経堂", intPtr(12), 1},
		{"unparseable", "お問い合わせください", "", "", nil, 0},
		{"empty", "", "", "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := ParseAccess(tt.input)
			require.Len(t, entries, tt.expected)
			if tt.expected == 0 {
				return
			}
			assert.Equal(t, tt.line, entries[0].LineName)
			assert.Equal(t, tt.station, entries[0].StationName)
			assert.Equal(t, tt.minutes, entries[0].WalkingMinutes)
		})
	}
}

func TestParseAccess_DropsUnmatchedSegments(t *testing.T) {
	entries := ParseAccess("JR山手線/渋谷駅 歩5分 / 謎の線")
	require.Len(t, entries, 1)
	assert.Equal(t, "JR山手線", entries[0].LineName)
}

func referenceLines() []models.Line {
	return []models.Line{
		{ID: "jr-yamanote", Name: "JR山手線", Stations: []models.Station{
			{ID: "yamanote-shibuya", Name: "渋谷"},
			{ID: "yamanote-ebisu", Name: "恵比寿"},
		}},
		{ID: "metro-ginza", Name: "東京メトロ銀座線", Stations: []models.Station{
			{ID: "ginza-shibuya", Name: "渋谷"},
			{ID: "ginza-omotesando", Name: "表参道"},
		}},
		{ID: "tokyu-toyoko", Name: "東急東横線", Stations: []models.Station{
			{ID: "toyoko-shibuya", Name: "渋谷"},
			{ID: "toyoko-nakameguro", Name: "中目黒"},
		}},
	}
}

func TestResolveAccess_ByLine(t *testing.T) {
	entries := ParseAccess("JR山手線/渋谷駅 歩5分 / 東京メトロ銀座線/渋谷駅 歩5分")
	resolved := ResolveAccess(entries, referenceLines())
	require.Len(t, resolved, 2)
	assert.Equal(t, "yamanote-shibuya", resolved[0].StationID)
	assert.Equal(t, "ginza-shibuya", resolved[1].StationID)
}

func TestResolveAccess_FullWidthLineName(t *testing.T) {
	entries := ParseAccess("ＪＲ山手線/恵比寿駅 歩7分")
	resolved := ResolveAccess(entries, referenceLines())
	require.Len(t, resolved, 1)
	assert.Equal(t, "jr-yamanote", resolved[0].LineID)
	assert.Equal(t, "yamanote-ebisu", resolved[0].StationID)
}

func TestResolveAccess_SubstringStation(t *testing.T) {
	lines := []models.Line{{ID: "l1", Name: "東急東横線", Stations: []models.Station{{ID: "s1", Name: "中目黒駅前"}}}}
	resolved := ResolveAccess(ParseAccess("東横線/中目黒駅 歩2分"), lines)
	require.Len(t, resolved, 1)
	assert.Equal(t, "s1", resolved[0].StationID)
}

func TestResolveAccess_FallbackFirstHitWins(t *testing.T) {
	// unknown line: exact station name across all lines, first in reference order
	resolved := ResolveAccess(ParseAccess("京王新線/渋谷駅 歩9分"), referenceLines())
	require.Len(t, resolved, 1)
	assert.Equal(t, "yamanote-shibuya", resolved[0].StationID)
}

func TestResolveAccess_DropsUnresolvable(t *testing.T) {
	resolved := ResolveAccess(ParseAccess("京王新線/初台駅 歩4分"), referenceLines())
	assert.Empty(t, resolved)
}
