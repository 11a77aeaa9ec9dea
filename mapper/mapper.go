// Package mapper translates parsed listings into entity attributes.
// Nothing here touches storage.
package mapper

import (
	"strings"

	"github.com/google/uuid"

	"suumo_crawler/config"
	"suumo_crawler/identity"
	"suumo_crawler/models"
	"suumo_crawler/parser"
)

type Mapper struct {
	buildingTypes config.OrderedMap
	roomTypes     config.OrderedMap
	structures    config.OrderedMap
}

func New(cfg config.MappingConfig) *Mapper {
	return &Mapper{
		buildingTypes: cfg.BuildingTypes,
		roomTypes:     cfg.RoomTypes,
		structures:    cfg.Structures,
	}
}

// BuildingType maps the listing label, defaulting to apartment
func (m *Mapper) BuildingType(raw string) models.BuildingType {
	if v, ok := m.buildingTypes.Lookup(strings.TrimSpace(raw)); ok && v != "" {
		return models.BuildingType(v)
	}
	return models.BuildingTypeApartment
}

// RoomType normalizes the floor plan (uppercase, no whitespace) then tries an
// exact key, then the first key contained in it, then falls back to other.
func (m *Mapper) RoomType(raw string) models.RoomType {
	key := strings.ToUpper(identity.NormalizeName(raw))
	if key == "" {
		return models.RoomTypeOther
	}
	if v, ok := m.roomTypes.Lookup(key); ok {
		return models.RoomType(v)
	}
	for _, kv := range m.roomTypes {
		if kv.Key != "" && strings.Contains(key, kv.Key) {
			return models.RoomType(kv.Value)
		}
	}
	return models.RoomTypeOther
}

// Structure maps known structure labels and passes unknown ones through
func (m *Mapper) Structure(raw string) string {
	raw = strings.TrimSpace(raw)
	if v, ok := m.structures.Lookup(raw); ok {
		return v
	}
	return raw
}

// Description renders the access lines and structure as free text
func (m *Mapper) Description(listing *models.PropertyListing) string {
	var lines []string
	for _, e := range parser.ParseAccess(listing.AccessInfo) {
		lines = append(lines, "アクセス: "+e.RawText)
	}
	if len(lines) == 0 && strings.TrimSpace(listing.AccessInfo) != "" {
		lines = append(lines, "アクセス: "+strings.TrimSpace(listing.AccessInfo))
	}
	if s := m.Structure(listing.Structure); s != "" {
		lines = append(lines, "構造: "+s)
	}
	return strings.Join(lines, "\n")
}

// ApplyBuilding writes the portal-sourced subset onto b. Fields users may
// edit, such as description and coordinates, are left alone.
func (m *Mapper) ApplyBuilding(b *models.Building, listing *models.PropertyListing) {
	b.Name = strings.TrimSpace(listing.BuildingName)
	b.Address = strings.TrimSpace(listing.Address)
	b.BuildingType = m.BuildingType(listing.BuildingType)
	b.Floors = listing.Floors
	b.BuiltDate = listing.BuiltDate
	b.Structure = m.Structure(listing.Structure)
}

// NewBuilding builds the full attribute set for a first-seen listing
func (m *Mapper) NewBuilding(listing *models.PropertyListing) *models.Building {
	b := &models.Building{}
	m.ApplyBuilding(b, listing)
	b.Description = m.Description(listing)
	return b
}

// ApplyRoom writes the portal-sourced subset onto r
func (m *Mapper) ApplyRoom(r *models.Room, room *models.RoomListing) {
	r.Floor = room.Floor
	r.Rent = room.Rent
	r.ManagementFee = room.ManagementFee
	r.Deposit = room.Deposit
	r.KeyMoney = room.KeyMoney
	r.RoomType = m.RoomType(room.RoomType)
	r.Area = room.Area
}

// NewRoom builds the full attribute set for a first-seen room
func (m *Mapper) NewRoom(buildingID uuid.UUID, room *models.RoomListing) *models.Room {
	r := &models.Room{
		BuildingID:     buildingID,
		RoomNumber:     room.RoomNumber,
		Status:         models.RoomStatusVacant,
		SuumoDetailURL: room.DetailURL,
	}
	m.ApplyRoom(r, room)
	return r
}
