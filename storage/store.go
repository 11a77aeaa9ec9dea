package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"suumo_crawler/models"
)

var (
	// ErrDuplicatePhoto is returned by AttachPhoto when the owner already has
	// a photo for the same source URL.
	ErrDuplicatePhoto = errors.New("photo already attached for source url")
	ErrNotFound       = errors.New("record not found")
)

// Store is the entity store the crawler reconciles against.
// Finders return nil, nil when nothing matches. Create and Update validate
// the entity and return models.ValidationErrors on failure.
type Store interface {
	FindBuildingByExternalKey(ctx context.Context, key string) (*models.Building, error)
	// FindBuildingByName matches case-insensitively with whitespace ignored.
	// Only buildings without an external key are candidates; keyed rows are
	// reachable through FindBuildingByExternalKey alone.
	FindBuildingByName(ctx context.Context, name string) (*models.Building, error)
	CreateBuilding(ctx context.Context, b *models.Building) error
	UpdateBuilding(ctx context.Context, b *models.Building) error

	FindRoomBySuumoCode(ctx context.Context, buildingID uuid.UUID, code string) (*models.Room, error)
	FindRoomByNumber(ctx context.Context, buildingID uuid.UUID, number string) (*models.Room, error)
	CreateRoom(ctx context.Context, r *models.Room) error
	UpdateRoom(ctx context.Context, r *models.Room) error

	PhotoExists(ctx context.Context, owner models.PhotoOwner, sourceURL string) (bool, error)
	AttachPhoto(ctx context.Context, p *models.Photo) error

	// SaveBuildingStations inserts links that do not exist yet
	SaveBuildingStations(ctx context.Context, buildingID uuid.UUID, links []models.BuildingStation) error
}

// BlobStore holds photo bytes
type BlobStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	// Delete removes a blob; a missing key is not an error
	Delete(ctx context.Context, key string) error
}
