package repository

import (
	"context"

	"homegrid-data/internal/domain"
)

// BuildingsRepository 楼宇与位置Repository接口
type BuildingsRepository interface {
	GetBuilding(ctx context.Context, buildingID string) (*domain.Building, error)
	ListBuildings(ctx context.Context, buildingIDs []string) ([]*domain.Building, error)
	ListAllBuildings(ctx context.Context) ([]*domain.Building, error)

	// CreateBuilding inserts the building, its first location, the creator's
	// parent membership, and (optionally) the first device assignment in one
	// transaction. Duplicate building id is a validation error.
	CreateBuilding(ctx context.Context, building *domain.Building, firstLocation string, deviceID string) error
	UpdateBuilding(ctx context.Context, buildingID string, building *domain.Building) error

	// DeleteBuildingCascade removes the building, its locations and all
	// membership rows, and unassigns devices in its locations — one
	// transaction, so a failure leaves no orphans.
	DeleteBuildingCascade(ctx context.Context, buildingID string) error

	ListLocations(ctx context.Context, buildingID string) ([]*domain.Location, error)
	GetLocation(ctx context.Context, locationID string) (*domain.Location, error)
	CreateLocation(ctx context.Context, location *domain.Location) error

	// DeleteLocation fails with a conflict while devices sit in the location
	// or any children membership still lists it.
	DeleteLocation(ctx context.Context, buildingID, locationID string) error
}
