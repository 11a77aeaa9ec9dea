package models

import (
	"time"

	"github.com/google/uuid"
)

// BuildingType is the internal building classification
type BuildingType string

const (
	BuildingTypeMansion   BuildingType = "mansion"
	BuildingTypeApartment BuildingType = "apartment"
	BuildingTypeHouse     BuildingType = "house"
	BuildingTypeOther     BuildingType = "other"
)

// RoomType is the internal floor-plan classification (1K, 2LDK, ...)
type RoomType string

const (
	RoomTypeOneRoom  RoomType = "one_room"
	RoomTypeOneK     RoomType = "one_k"
	RoomTypeOneDK    RoomType = "one_dk"
	RoomTypeOneLDK   RoomType = "one_ldk"
	RoomTypeTwoK     RoomType = "two_k"
	RoomTypeTwoDK    RoomType = "two_dk"
	RoomTypeTwoLDK   RoomType = "two_ldk"
	RoomTypeThreeK   RoomType = "three_k"
	RoomTypeThreeDK  RoomType = "three_dk"
	RoomTypeThreeLDK RoomType = "three_ldk"
	RoomTypeOther    RoomType = "other"
)

// RoomStatus is the occupancy state of a room
type RoomStatus string

const (
	RoomStatusVacant      RoomStatus = "vacant"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusReserved    RoomStatus = "reserved"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// PhotoType classifies what a photo shows
type PhotoType string

const (
	PhotoTypeExterior  PhotoType = "exterior"
	PhotoTypeInterior  PhotoType = "interior"
	PhotoTypeFloorPlan PhotoType = "floor_plan"
	PhotoTypeOther     PhotoType = "other"
)

// OwnerKind identifies which entity a photo hangs off
type OwnerKind string

const (
	OwnerBuilding OwnerKind = "building"
	OwnerRoom     OwnerKind = "room"
)

// PhotoOwner references the building or room a photo belongs to
type PhotoOwner struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func (o PhotoOwner) String() string {
	return string(o.Kind) + ":" + o.ID.String()
}

// Building represents a physical building (permanent, owned by the entity store)
type Building struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Address         string       `json:"address" db:"address"`
	BuildingType    BuildingType `json:"building_type" db:"building_type"`
	Structure       string       `json:"structure" db:"structure"`
	Floors          int          `json:"floors" db:"floors"`
	BuiltDate       *time.Time   `json:"built_date" db:"built_date"`
	TotalUnits      int          `json:"total_units" db:"total_units"`
	Description     string       `json:"description" db:"description"`
	Latitude        *float64     `json:"latitude" db:"latitude"`
	Longitude       *float64     `json:"longitude" db:"longitude"`
	ExternalKey     string       `json:"external_key" db:"external_key"`
	SuumoImportedAt *time.Time   `json:"suumo_imported_at" db:"suumo_imported_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether the building has been geocoded
func (b *Building) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// Validate returns field-level errors, or nil when the building can be saved
func (b *Building) Validate() error {
	var errs ValidationErrors
	if b.Name == "" {
		errs.Add("name", "can't be blank")
	}
	if b.Address == "" {
		errs.Add("address", "can't be blank")
	}
	if b.Floors < 0 {
		errs.Add("floors", "must be greater than or equal to 0")
	}
	return errs.OrNil()
}

// Room represents a rentable unit inside a building
type Room struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	BuildingID      uuid.UUID  `json:"building_id" db:"building_id"`
	RoomNumber      string     `json:"room_number" db:"room_number"`
	Floor           int        `json:"floor" db:"floor"`
	RoomType        RoomType   `json:"room_type" db:"room_type"`
	Area            *float64   `json:"area" db:"area"`
	Rent            *int       `json:"rent" db:"rent"`
	ManagementFee   *int       `json:"management_fee" db:"management_fee"`
	Deposit         *int       `json:"deposit" db:"deposit"`
	KeyMoney        *int       `json:"key_money" db:"key_money"`
	Status          RoomStatus `json:"status" db:"status"`
	SuumoRoomCode   string     `json:"suumo_room_code" db:"suumo_room_code"`
	SuumoDetailURL  string     `json:"suumo_detail_url" db:"suumo_detail_url"`
	SuumoImportedAt *time.Time `json:"suumo_imported_at" db:"suumo_imported_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate returns field-level errors, or nil when the room can be saved
func (r *Room) Validate() error {
	var errs ValidationErrors
	if r.BuildingID == uuid.Nil {
		errs.Add("building", "must exist")
	}
	if r.RoomNumber == "" {
		errs.Add("room_number", "can't be blank")
	}
	if r.Floor < -10 || r.Floor > 200 {
		errs.Add("floor", "is out of range")
	}
	checkNonNegative(&errs, "rent", r.Rent)
	checkNonNegative(&errs, "management_fee", r.ManagementFee)
	checkNonNegative(&errs, "deposit", r.Deposit)
	checkNonNegative(&errs, "key_money", r.KeyMoney)
	if r.Area != nil && *r.Area <= 0 {
		errs.Add("area", "must be greater than 0")
	}
	return errs.OrNil()
}

func checkNonNegative(errs *ValidationErrors, field string, v *int) {
	if v != nil && *v < 0 {
		errs.Add(field, "must be greater than or equal to 0")
	}
}

// Photo is an image blob attached to a building or room.
// At most one photo exists per (owner, source_url).
type Photo struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Owner        PhotoOwner `json:"owner"`
	BlobKey      string     `json:"blob_key" db:"blob_key"`
	Filename     string     `json:"filename" db:"filename"`
	ContentType  string     `json:"content_type" db:"content_type"`
	ByteSize     int64      `json:"byte_size" db:"byte_size"`
	PhotoType    PhotoType  `json:"photo_type" db:"photo_type"`
	DisplayOrder int        `json:"display_order" db:"display_order"`
	SourceURL    string     `json:"source_url" db:"source_url"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Validate returns field-level errors, or nil when the photo can be saved
func (p *Photo) Validate() error {
	var errs ValidationErrors
	if p.Owner.ID == uuid.Nil {
		errs.Add("owner", "must exist")
	}
	if p.BlobKey == "" {
		errs.Add("blob", "must be attached")
	}
	if p.DisplayOrder < 0 {
		errs.Add("display_order", "must be greater than or equal to 0")
	}
	return errs.OrNil()
}

// BuildingStation links a building to a nearby reference station
type BuildingStation struct {
	BuildingID     uuid.UUID `json:"building_id" db:"building_id"`
	LineID         string    `json:"line_id" db:"line_id"`
	StationID      string    `json:"station_id" db:"station_id"`
	WalkingMinutes *int      `json:"walking_minutes" db:"walking_minutes"`
	RawText        string    `json:"raw_text" db:"raw_text"`
	SortOrder      int       `json:"sort_order" db:"sort_order"`
}
