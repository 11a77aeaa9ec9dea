package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"suumo_crawler/identity"
	"suumo_crawler/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS buildings (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL,
	building_type TEXT NOT NULL DEFAULT 'apartment',
	structure TEXT NOT NULL DEFAULT '',
	floors INTEGER NOT NULL DEFAULT 0,
	built_date DATE,
	total_units INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	external_key TEXT UNIQUE,
	suumo_imported_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY,
	building_id UUID NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
	room_number TEXT NOT NULL,
	floor INTEGER NOT NULL DEFAULT 1,
	room_type TEXT NOT NULL DEFAULT 'other',
	area DOUBLE PRECISION,
	rent INTEGER,
	management_fee INTEGER,
	deposit INTEGER,
	key_money INTEGER,
	status TEXT NOT NULL DEFAULT 'vacant',
	suumo_room_code TEXT,
	suumo_detail_url TEXT,
	suumo_imported_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS photos (
	id UUID PRIMARY KEY,
	owner_type TEXT NOT NULL,
	owner_id UUID NOT NULL,
	blob_key TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	byte_size BIGINT NOT NULL,
	photo_type TEXT NOT NULL,
	display_order INTEGER NOT NULL DEFAULT 0,
	source_url TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (owner_type, owner_id, source_url)
);

CREATE TABLE IF NOT EXISTS building_stations (
	building_id UUID NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
	line_id TEXT NOT NULL,
	station_id TEXT NOT NULL,
	walking_minutes INTEGER,
	raw_text TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (building_id, station_id)
);

CREATE INDEX IF NOT EXISTS idx_rooms_building_code ON rooms(building_id, suumo_room_code);
CREATE INDEX IF NOT EXISTS idx_rooms_building_number ON rooms(building_id, room_number);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the crawler tables when they are missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// =============================================================================
// Buildings
// =============================================================================

const buildingColumns = `
	id, name, address, building_type, structure, floors, built_date, total_units,
	description, latitude, longitude, COALESCE(external_key, ''), suumo_imported_at,
	created_at, updated_at`

func scanBuilding(row pgx.Row) (*models.Building, error) {
	var b models.Building
	err := row.Scan(
		&b.ID, &b.Name, &b.Address, &b.BuildingType, &b.Structure, &b.Floors, &b.BuiltDate, &b.TotalUnits,
		&b.Description, &b.Latitude, &b.Longitude, &b.ExternalKey, &b.SuumoImportedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) FindBuildingByExternalKey(ctx context.Context, key string) (*models.Building, error) {
	if key == "" {
		return nil, nil
	}
	query := `SELECT` + buildingColumns + ` FROM buildings WHERE external_key = $1`
	return scanBuilding(s.pool.QueryRow(ctx, query, key))
}

// FindBuildingByName compares lowercased names with ASCII and ideographic
// whitespace removed, among rows that have no external key yet. Oldest
// record wins when several match.
func (s *PostgresStore) FindBuildingByName(ctx context.Context, name string) (*models.Building, error) {
	key := identity.NameMatchKey(name)
	if key == "" {
		return nil, nil
	}
	query := `SELECT` + buildingColumns + `
		FROM buildings
		WHERE external_key IS NULL
		  AND lower(regexp_replace(name, '[[:space:]　]', '', 'g')) = $1
		ORDER BY created_at
		LIMIT 1`
	return scanBuilding(s.pool.QueryRow(ctx, query, key))
}

func (s *PostgresStore) CreateBuilding(ctx context.Context, b *models.Building) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.BuildingType == "" {
		b.BuildingType = models.BuildingTypeApartment
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now

	query := `
		INSERT INTO buildings (
			id, name, address, building_type, structure, floors, built_date, total_units,
			description, latitude, longitude, external_key, suumo_imported_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)`

	_, err := s.pool.Exec(ctx, query,
		b.ID, b.Name, b.Address, string(b.BuildingType), b.Structure, b.Floors, b.BuiltDate, b.TotalUnits,
		b.Description, b.Latitude, b.Longitude, b.ExternalKey, b.SuumoImportedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert building: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBuilding(ctx context.Context, b *models.Building) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()

	query := `
		UPDATE buildings SET
			name = $2, address = $3, building_type = $4, structure = $5, floors = $6,
			built_date = $7, total_units = $8, description = $9, latitude = $10, longitude = $11,
			external_key = NULLIF($12, ''), suumo_imported_at = $13, updated_at = $14
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		b.ID, b.Name, b.Address, string(b.BuildingType), b.Structure, b.Floors,
		b.BuiltDate, b.TotalUnits, b.Description, b.Latitude, b.Longitude,
		b.ExternalKey, b.SuumoImportedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update building: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Rooms
// =============================================================================

const roomColumns = `
	id, building_id, room_number, floor, room_type, area, rent, management_fee, deposit,
	key_money, status, COALESCE(suumo_room_code, ''), COALESCE(suumo_detail_url, ''),
	suumo_imported_at, created_at, updated_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(
		&r.ID, &r.BuildingID, &r.RoomNumber, &r.Floor, &r.RoomType, &r.Area, &r.Rent, &r.ManagementFee, &r.Deposit,
		&r.KeyMoney, &r.Status, &r.SuumoRoomCode, &r.SuumoDetailURL,
		&r.SuumoImportedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) FindRoomBySuumoCode(ctx context.Context, buildingID uuid.UUID, code string) (*models.Room, error) {
	if code == "" {
		return nil, nil
	}
	query := `SELECT` + roomColumns + ` FROM rooms WHERE building_id = $1 AND suumo_room_code = $2 LIMIT 1`
	return scanRoom(s.pool.QueryRow(ctx, query, buildingID, code))
}

func (s *PostgresStore) FindRoomByNumber(ctx context.Context, buildingID uuid.UUID, number string) (*models.Room, error) {
	if number == "" {
		return nil, nil
	}
	query := `SELECT` + roomColumns + ` FROM rooms WHERE building_id = $1 AND room_number = $2 LIMIT 1`
	return scanRoom(s.pool.QueryRow(ctx, query, buildingID, number))
}

func (s *PostgresStore) CreateRoom(ctx context.Context, r *models.Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = models.RoomStatusVacant
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now

	query := `
		INSERT INTO rooms (
			id, building_id, room_number, floor, room_type, area, rent, management_fee, deposit,
			key_money, status, suumo_room_code, suumo_detail_url, suumo_imported_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.BuildingID, r.RoomNumber, r.Floor, string(r.RoomType), r.Area, r.Rent, r.ManagementFee, r.Deposit,
		r.KeyMoney, string(r.Status), r.SuumoRoomCode, r.SuumoDetailURL, r.SuumoImportedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRoom(ctx context.Context, r *models.Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.UpdatedAt = time.Now()

	query := `
		UPDATE rooms SET
			room_number = $2, floor = $3, room_type = $4, area = $5, rent = $6, management_fee = $7,
			deposit = $8, key_money = $9, status = $10, suumo_room_code = NULLIF($11, ''),
			suumo_detail_url = NULLIF($12, ''), suumo_imported_at = $13, updated_at = $14
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		r.ID, r.RoomNumber, r.Floor, string(r.RoomType), r.Area, r.Rent, r.ManagementFee,
		r.Deposit, r.KeyMoney, string(r.Status), r.SuumoRoomCode,
		r.SuumoDetailURL, r.SuumoImportedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Photos
// =============================================================================

func (s *PostgresStore) PhotoExists(ctx context.Context, owner models.PhotoOwner, sourceURL string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM photos WHERE owner_type = $1 AND owner_id = $2 AND source_url = $3
		)`, string(owner.Kind), owner.ID, sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("photo exists: %w", err)
	}
	return exists, nil
}

// AttachPhoto relies on the (owner, source_url) unique constraint so that
// concurrent crawls cannot attach the same image twice.
func (s *PostgresStore) AttachPhoto(ctx context.Context, p *models.Photo) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO photos (
			id, owner_type, owner_id, blob_key, filename, content_type, byte_size,
			photo_type, display_order, source_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		ON CONFLICT (owner_type, owner_id, source_url) DO NOTHING
		RETURNING id`,
		p.ID, string(p.Owner.Kind), p.Owner.ID, p.BlobKey, p.Filename, p.ContentType, p.ByteSize,
		string(p.PhotoType), p.DisplayOrder, p.SourceURL, p.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicatePhoto
	}
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// =============================================================================
// Stations
// =============================================================================

func (s *PostgresStore) SaveBuildingStations(ctx context.Context, buildingID uuid.UUID, links []models.BuildingStation) error {
	if len(links) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(`
			INSERT INTO building_stations (building_id, line_id, station_id, walking_minutes, raw_text, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (building_id, station_id) DO NOTHING`,
			buildingID, l.LineID, l.StationID, l.WalkingMinutes, strings.TrimSpace(l.RawText), l.SortOrder)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save building stations: %w", err)
	}
	return nil
}
