package models

import "time"

// PropertyListing is one building block parsed from a search-result page.
// Listings are rebuilt on every crawl and discarded after processing.
type PropertyListing struct {
	BuildingName string        `json:"building_name"`
	Address      string        `json:"address"`
	BuildingType string        `json:"building_type"` // raw label, e.g. 賃貸マンション
	Floors       int           `json:"floors"`
	BuiltDate    *time.Time    `json:"built_date"`
	Structure    string        `json:"structure"`
	AccessInfo   string        `json:"access_info"`
	ImageURLs    []string      `json:"image_urls"`
	Rooms        []RoomListing `json:"rooms"`
}

// RoomListing is one room row inside a listing block
type RoomListing struct {
	Floor         int      `json:"floor"`
	Rent          *int     `json:"rent"`
	ManagementFee *int     `json:"management_fee"`
	Deposit       *int     `json:"deposit"`
	KeyMoney      *int     `json:"key_money"`
	RoomType      string   `json:"room_type"` // raw floor plan, e.g. 1LDK
	Area          *float64 `json:"area"`
	DetailURL     string   `json:"detail_url"`
	ImageURLs     []string `json:"image_urls"`
	RoomNumber    string   `json:"room_number"` // synthesized, the page exposes none
}
