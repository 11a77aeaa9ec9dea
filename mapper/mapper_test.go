package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"suumo_crawler/config"
	"suumo_crawler/models"
)

func newTestMapper() *Mapper {
	return New(config.DefaultMappings())
}

func TestBuildingType(t *testing.T) {
	m := newTestMapper()
	tests := []struct {
		input    string
		expected models.BuildingType
	}{
		{"マンション", models.BuildingTypeMansion},
		{"アパート", models.BuildingTypeApartment},
		{"一戸建", models.BuildingTypeHouse},
		{"", models.BuildingTypeApartment},
		{"テナント", models.BuildingTypeApartment},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.BuildingType(tt.input))
		})
	}
}

func TestRoomType(t *testing.T) {
	m := newTestMapper()
	tests := []struct {
		input    string
		expected models.RoomType
	}{
		{"1LDK", models.RoomTypeOneLDK},
		{"1ldk", models.RoomTypeOneLDK},
		{" 2 DK ", models.RoomTypeTwoDK},
		{"１Ｋ", models.RoomTypeOneK},
		{"ワンルーム", models.RoomTypeOneRoom},
		{"2LDK+S", models.RoomTypeTwoLDK},
		{"4LDK", models.RoomTypeOther},
		{"", models.RoomTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.RoomType(tt.input))
		})
	}
}

func TestRoomType_SubstringUsesConfiguredOrder(t *testing.T) {
	m := New(config.MappingConfig{RoomTypes: config.OrderedMap{
		{Key: "K", Value: "one_k"},
		{Key: "LDK", Value: "one_ldk"},
	}})
	assert.Equal(t, models.RoomTypeOneK, m.RoomType("1LDK"), "first configured key found as substring wins")
}

func TestStructure(t *testing.T) {
	m := newTestMapper()
	assert.Equal(t, "鉄筋コンクリート造", m.Structure("鉄筋コン造"))
	assert.Equal(t, "木造", m.Structure("木造"))
	assert.Equal(t, "その他造", m.Structure("その他造"))
	assert.Equal(t, "", m.Structure(""))
}

func TestDescription(t *testing.T) {
	m := newTestMapper()
	listing := &models.PropertyListing{
		AccessInfo: "JR山手線/渋谷駅 歩5分 / 東京メトロ銀座線/渋谷駅 歩5分",
		Structure:  "鉄筋コン造",
	}
	assert.Equal(t, "アクセス: JR山手線/渋谷駅 歩5分\nアクセス: 東京メトロ銀座線/渋谷駅 歩5分\n構造: 鉄筋コンクリート造", m.Description(listing))
	assert.Equal(t, "", m.Description(&models.PropertyListing{}))
}

func TestNewBuilding(t *testing.T) {
	m := newTestMapper()
	built := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)
	b := m.NewBuilding(&models.PropertyListing{
		BuildingName: " ABCマンション ",
		Address:      "東京都渋谷区神南1",
		BuildingType: "マンション",
		Floors:       12,
		BuiltDate:    &built,
		Structure:    "鉄筋コン造",
	})
	assert.Equal(t, "ABCマンション", b.Name)
	assert.Equal(t, models.BuildingTypeMansion, b.BuildingType)
	assert.Equal(t, 12, b.Floors)
	assert.Equal(t, &built, b.BuiltDate)
	assert.Equal(t, "鉄筋コンクリート造", b.Structure)
	assert.Equal(t, "構造: 鉄筋コンクリート造", b.Description)
}

func TestApplyBuilding_LeavesUserFields(t *testing.T) {
	m := newTestMapper()
	lat, lng := 35.66, 139.70
	b := &models.Building{Description: "edited by staff", TotalUnits: 24, Latitude: &lat, Longitude: &lng}
	m.ApplyBuilding(b, &models.PropertyListing{BuildingName: "X", Address: "Y", Floors: 3})

	assert.Equal(t, "X", b.Name)
	assert.Equal(t, 3, b.Floors)
	assert.Equal(t, "edited by staff", b.Description)
	assert.Equal(t, 24, b.TotalUnits)
	assert.True(t, b.HasCoordinates())
}

func TestNewRoom(t *testing.T) {
	m := newTestMapper()
	rent, area := 69000, 40.5
	id := uuid.New()
	r := m.NewRoom(id, &models.RoomListing{
		Floor: 3, Rent: &rent, RoomType: "1LDK", Area: &area,
		RoomNumber: "3F-abcd1234", DetailURL: "https://suumo.jp/chintai/jnc_1/",
	})
	assert.Equal(t, id, r.BuildingID)
	assert.Equal(t, models.RoomStatusVacant, r.Status)
	assert.Equal(t, models.RoomTypeOneLDK, r.RoomType)
	assert.Equal(t, "3F-abcd1234", r.RoomNumber)
	assert.Equal(t, &rent, r.Rent)
	assert.Equal(t, "https://suumo.jp/chintai/jnc_1/", r.SuumoDetailURL)
}
