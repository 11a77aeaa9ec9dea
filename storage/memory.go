package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"suumo_crawler/identity"
	"suumo_crawler/models"
)

// MemoryStore is a mutex-guarded Store for tests, dry runs and local development
type MemoryStore struct {
	mu        sync.RWMutex
	buildings map[uuid.UUID]*models.Building
	rooms     map[uuid.UUID]*models.Room
	photos    []*models.Photo
	stations  []models.BuildingStation
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buildings: make(map[uuid.UUID]*models.Building),
		rooms:     make(map[uuid.UUID]*models.Room),
		now:       time.Now,
	}
}

func (s *MemoryStore) FindBuildingByExternalKey(_ context.Context, key string) (*models.Building, error) {
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buildings {
		if b.ExternalKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindBuildingByName(_ context.Context, name string) (*models.Building, error) {
	key := identity.NameMatchKey(name)
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buildings {
		if b.ExternalKey == "" && identity.NameMatchKey(b.Name) == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateBuilding(_ context.Context, b *models.Building) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.buildings[b.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateBuilding(_ context.Context, b *models.Building) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buildings[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = s.now()
	cp := *b
	s.buildings[b.ID] = &cp
	return nil
}

func (s *MemoryStore) FindRoomBySuumoCode(_ context.Context, buildingID uuid.UUID, code string) (*models.Room, error) {
	if code == "" {
		return nil, nil
	}
	return s.findRoom(func(r *models.Room) bool {
		return r.BuildingID == buildingID && r.SuumoRoomCode == code
	}), nil
}

func (s *MemoryStore) FindRoomByNumber(_ context.Context, buildingID uuid.UUID, number string) (*models.Room, error) {
	if number == "" {
		return nil, nil
	}
	return s.findRoom(func(r *models.Room) bool {
		return r.BuildingID == buildingID && r.RoomNumber == number
	}), nil
}

func (s *MemoryStore) findRoom(match func(*models.Room) bool) *models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if match(r) {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, r *models.Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buildings[r.BuildingID]; !ok {
		return ErrNotFound
	}
	now := s.now()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = models.RoomStatusVacant
	}
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.rooms[r.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateRoom(_ context.Context, r *models.Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = s.now()
	cp := *r
	s.rooms[r.ID] = &cp
	return nil
}

func (s *MemoryStore) PhotoExists(_ context.Context, owner models.PhotoOwner, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPhoto(owner, sourceURL), nil
}

func (s *MemoryStore) hasPhoto(owner models.PhotoOwner, sourceURL string) bool {
	for _, p := range s.photos {
		if p.Owner == owner && p.SourceURL == sourceURL {
			return true
		}
	}
	return false
}

func (s *MemoryStore) AttachPhoto(_ context.Context, p *models.Photo) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.SourceURL != "" && s.hasPhoto(p.Owner, p.SourceURL) {
		return ErrDuplicatePhoto
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = s.now()
	cp := *p
	s.photos = append(s.photos, &cp)
	return nil
}

func (s *MemoryStore) SaveBuildingStations(_ context.Context, buildingID uuid.UUID, links []models.BuildingStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range links {
		l.BuildingID = buildingID
		exists := false
		for _, e := range s.stations {
			if e.BuildingID == buildingID && e.StationID == l.StationID {
				exists = true
				break
			}
		}
		if !exists {
			s.stations = append(s.stations, l)
		}
	}
	return nil
}

// Buildings returns a snapshot of all stored buildings
func (s *MemoryStore) Buildings() []models.Building {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Building, 0, len(s.buildings))
	for _, b := range s.buildings {
		out = append(out, *b)
	}
	return out
}

func (s *MemoryStore) Rooms() []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	return out
}

func (s *MemoryStore) Photos() []models.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, *p)
	}
	return out
}

func (s *MemoryStore) Stations() []models.BuildingStation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.BuildingStation(nil), s.stations...)
}
