package service

import (
	"context"

	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/repository"
)

// DeviceService 设备管理服务接口
type DeviceService interface {
	ListDevices(ctx context.Context, sess authz.Session, buildingID string) (*ListDevicesResponse, error)
	AssignDevice(ctx context.Context, sess authz.Session, req AssignDeviceRequest) error
	UnassignDevice(ctx context.Context, sess authz.Session, deviceID string) error
}

type DeviceView struct {
	DeviceID     string `json:"device_id"`
	LocationID   string `json:"location_id,omitempty"`
	WattageWatts int    `json:"wattage_watts"`
}

type ListDevicesResponse struct {
	Items []DeviceView `json:"items"`
}

type AssignDeviceRequest struct {
	DeviceID   string
	BuildingID string
	LocationID string
}

type deviceService struct {
	devices   repository.DevicesRepository
	buildings repository.BuildingsRepository
	resolver  *authz.Resolver
	logger    *zap.Logger
}

func NewDeviceService(
	devices repository.DevicesRepository,
	buildings repository.BuildingsRepository,
	resolver *authz.Resolver,
	logger *zap.Logger,
) DeviceService {
	return &deviceService{devices: devices, buildings: buildings, resolver: resolver, logger: logger}
}

func (s *deviceService) ListDevices(ctx context.Context, sess authz.Session, buildingID string) (*ListDevicesResponse, error) {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	all, err := s.devices.ListDevicesByBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	visible, err := authz.VisibleDevices(rs, buildingID, all)
	if err != nil {
		return nil, err
	}
	items := make([]DeviceView, 0, len(visible))
	for _, d := range visible {
		v := DeviceView{DeviceID: d.DeviceID, WattageWatts: d.WattageWatts}
		if d.LocationID.Valid {
			v.LocationID = d.LocationID.String
		}
		items = append(items, v)
	}
	return &ListDevicesResponse{Items: items}, nil
}

func (s *deviceService) AssignDevice(ctx context.Context, sess authz.Session, req AssignDeviceRequest) error {
	if req.DeviceID == "" || req.BuildingID == "" || req.LocationID == "" {
		return apperrors.Validation("device_id, building_id and location_id are required")
	}
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanManageLocations(rs, req.BuildingID) {
		return apperrors.PermissionDenied("only a parent may assign devices in %s", req.BuildingID)
	}

	loc, err := s.buildings.GetLocation(ctx, req.LocationID)
	if err != nil {
		return err
	}
	if loc.BuildingID != req.BuildingID {
		return apperrors.Validation("location %s does not belong to building %s", req.LocationID, req.BuildingID)
	}

	// Devices are pre-provisioned hardware tokens; an unknown id is a typo,
	// not a registration request.
	if _, err := s.devices.GetDevice(ctx, req.DeviceID); err != nil {
		return err
	}

	if err := s.devices.AssignDevice(ctx, req.DeviceID, req.LocationID); err != nil {
		return err
	}
	s.logger.Info("device assigned",
		zap.String("device_id", req.DeviceID),
		zap.String("location_id", req.LocationID),
		zap.String("by", sess.Email))
	return nil
}

func (s *deviceService) UnassignDevice(ctx context.Context, sess authz.Session, deviceID string) error {
	d, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if !d.LocationID.Valid {
		return nil // already unassigned
	}
	loc, err := s.buildings.GetLocation(ctx, d.LocationID.String)
	if err != nil {
		return err
	}

	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanManageLocations(rs, loc.BuildingID) {
		return apperrors.PermissionDenied("only a parent may unassign devices in %s", loc.BuildingID)
	}
	return s.devices.UnassignDevice(ctx, deviceID)
}
