package repository

import (
	"context"

	"homegrid-data/internal/domain"
)

// DevicesRepository 设备Repository接口
type DevicesRepository interface {
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	// ListDevicesByBuilding returns every device assigned to any location of
	// the building; visibility filtering happens in the authz layer.
	ListDevicesByBuilding(ctx context.Context, buildingID string) ([]*domain.Device, error)
	AssignDevice(ctx context.Context, deviceID, locationID string) error
	UnassignDevice(ctx context.Context, deviceID string) error
}
