package scraper

import (
	"context"
	"errors"
	"fmt"

	"suumo_crawler/identity"
	"suumo_crawler/models"
	"suumo_crawler/parser"
	"suumo_crawler/storage"
)

func (o *Orchestrator) processListing(ctx context.Context, listing *models.PropertyListing, opts Options, stats *models.CrawlStats) {
	building, res := o.resolveBuilding(ctx, listing, opts)
	stats.RecordBuilding(res)
	if res.Err != nil {
		o.logger.Warn().Str("building", listing.BuildingName).Str("kind", string(res.Err.Kind)).Msg(res.Err.Message)
	}
	if building == nil {
		// dry run or failed save: rooms have no parent to hang off
		if opts.DryRun {
			for range listing.Rooms {
				stats.RecordRoom(models.Skipped())
			}
		}
		return
	}

	o.linkStations(ctx, building, listing, stats)

	rooms := make([]*models.Room, len(listing.Rooms))
	for i := range listing.Rooms {
		room, res := o.resolveRoom(ctx, building, &listing.Rooms[i])
		stats.RecordRoom(res)
		if res.Err != nil {
			o.logger.Warn().Str("building", building.Name).Str("room", listing.Rooms[i].RoomNumber).Msg(res.Err.Message)
		}
		rooms[i] = room
	}

	if opts.SkipImages || o.images == nil {
		return
	}
	owner := models.PhotoOwner{Kind: models.OwnerBuilding, ID: building.ID}
	o.ingestImages(ctx, owner, listing.ImageURLs, models.PhotoTypeExterior, stats)
	for i, room := range rooms {
		if room == nil {
			continue
		}
		owner := models.PhotoOwner{Kind: models.OwnerRoom, ID: room.ID}
		o.ingestImages(ctx, owner, listing.Rooms[i].ImageURLs, models.PhotoTypeInterior, stats)
	}
}

// resolveBuilding finds the building by external key, then by normalized
// name, and creates or updates it. A nil building means nothing was saved.
func (o *Orchestrator) resolveBuilding(ctx context.Context, listing *models.PropertyListing, opts Options) (*models.Building, models.ItemResult) {
	label := "building " + listing.BuildingName
	key := identity.ExternalKey(listing.BuildingName, listing.Address)

	existing, err := o.store.FindBuildingByExternalKey(ctx, key)
	if err != nil {
		return nil, models.Failed(models.ErrorKindStore, label, err)
	}
	if existing == nil {
		existing, err = o.store.FindBuildingByName(ctx, listing.BuildingName)
		if err != nil {
			return nil, models.Failed(models.ErrorKindStore, label, err)
		}
	}

	if opts.DryRun {
		return nil, models.Skipped()
	}

	now := o.now()
	if existing != nil {
		o.mapper.ApplyBuilding(existing, listing)
		existing.ExternalKey = key
		existing.SuumoImportedAt = &now
		if err := o.store.UpdateBuilding(ctx, existing); err != nil {
			return nil, saveFailure(label, err)
		}
		o.enqueueGeocode(ctx, existing)
		return existing, models.Updated()
	}

	b := o.mapper.NewBuilding(listing)
	b.ExternalKey = key
	b.SuumoImportedAt = &now
	if err := o.store.CreateBuilding(ctx, b); err != nil {
		return nil, saveFailure(label, err)
	}
	o.enqueueGeocode(ctx, b)
	return b, models.Created()
}

// resolveRoom looks the room up by SUUMO room code, then by room number,
// within the building
func (o *Orchestrator) resolveRoom(ctx context.Context, building *models.Building, listing *models.RoomListing) (*models.Room, models.ItemResult) {
	label := fmt.Sprintf("room %s in %s", listing.RoomNumber, building.Name)
	code := identity.RoomCode(listing.DetailURL)

	var (
		existing *models.Room
		err      error
	)
	if code != "" {
		existing, err = o.store.FindRoomBySuumoCode(ctx, building.ID, code)
		if err != nil {
			return nil, models.Failed(models.ErrorKindStore, label, err)
		}
	}
	if existing == nil && listing.RoomNumber != "" {
		existing, err = o.store.FindRoomByNumber(ctx, building.ID, listing.RoomNumber)
		if err != nil {
			return nil, models.Failed(models.ErrorKindStore, label, err)
		}
	}

	now := o.now()
	if existing != nil {
		o.mapper.ApplyRoom(existing, listing)
		if code != "" {
			existing.SuumoRoomCode = code
		}
		if listing.DetailURL != "" {
			existing.SuumoDetailURL = listing.DetailURL
		}
		existing.SuumoImportedAt = &now
		if err := o.store.UpdateRoom(ctx, existing); err != nil {
			return nil, saveFailure(label, err)
		}
		return existing, models.Updated()
	}

	r := o.mapper.NewRoom(building.ID, listing)
	r.SuumoRoomCode = code
	r.SuumoImportedAt = &now
	if err := o.store.CreateRoom(ctx, r); err != nil {
		return nil, saveFailure(label, err)
	}
	return r, models.Created()
}

// ingestImages attaches each URL to owner unless a photo with the same
// source URL is already there
func (o *Orchestrator) ingestImages(ctx context.Context, owner models.PhotoOwner, urls []string, photoType models.PhotoType, stats *models.CrawlStats) {
	for i, imageURL := range urls {
		label := fmt.Sprintf("image %s for %s", imageURL, owner)

		exists, err := o.store.PhotoExists(ctx, owner, imageURL)
		if err != nil {
			stats.RecordImage(models.Failed(models.ErrorKindStore, label, err))
			continue
		}
		if exists {
			stats.RecordImage(models.Skipped())
			continue
		}

		err = o.images.DownloadAndAttachErr(ctx, imageURL, owner, photoType, i, imageURL)
		switch {
		case err == nil:
			stats.RecordImage(models.Created())
		case errors.Is(err, storage.ErrDuplicatePhoto):
			stats.RecordImage(models.Skipped())
		default:
			stats.RecordImage(models.Failed(models.ErrorKindImage, label, err))
		}
	}
}

func (o *Orchestrator) linkStations(ctx context.Context, building *models.Building, listing *models.PropertyListing, stats *models.CrawlStats) {
	if len(o.lines) == 0 || listing.AccessInfo == "" {
		return
	}
	resolved := parser.ResolveAccess(parser.ParseAccess(listing.AccessInfo), o.lines)
	if len(resolved) == 0 {
		return
	}

	links := make([]models.BuildingStation, 0, len(resolved))
	for i, r := range resolved {
		links = append(links, models.BuildingStation{
			BuildingID:     building.ID,
			LineID:         r.LineID,
			StationID:      r.StationID,
			WalkingMinutes: r.Entry.WalkingMinutes,
			RawText:        r.Entry.RawText,
			SortOrder:      i,
		})
	}
	if err := o.store.SaveBuildingStations(ctx, building.ID, links); err != nil {
		stats.AddError(models.ErrorKindStore, "stations for "+building.Name, err.Error())
	}
}

func (o *Orchestrator) enqueueGeocode(ctx context.Context, b *models.Building) {
	if o.geocoder == nil || b.HasCoordinates() {
		return
	}
	if err := o.geocoder.Enqueue(ctx, b); err != nil {
		o.logger.Warn().Err(err).Str("building_id", b.ID.String()).Msg("Geocode enqueue failed")
	}
}

func saveFailure(label string, err error) models.ItemResult {
	if models.IsValidation(err) {
		return models.Failed(models.ErrorKindValidation, label, err)
	}
	return models.Failed(models.ErrorKindStore, label, err)
}
