package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
)

// EnergyService 用电量查询服务接口（只读）
type EnergyService interface {
	DailySeries(ctx context.Context, sess authz.Session, req EnergyRangeRequest) (*DailySeriesResponse, error)
	ExportXLSX(ctx context.Context, sess authz.Session, req EnergyRangeRequest) ([]byte, error)
}

type EnergyRangeRequest struct {
	DeviceID string
	From     time.Time
	To       time.Time
}

type DailyPoint struct {
	Day      string  `json:"day"` // YYYY-MM-DD
	UsageKWh float64 `json:"usage_kwh"`
}

type DailySeriesResponse struct {
	DeviceID string       `json:"device_id"`
	Points   []DailyPoint `json:"points"`
}

type energyService struct {
	energy    repository.EnergyRepository
	devices   repository.DevicesRepository
	buildings repository.BuildingsRepository
	resolver  *authz.Resolver
	logger    *zap.Logger
}

func NewEnergyService(
	energy repository.EnergyRepository,
	devices repository.DevicesRepository,
	buildings repository.BuildingsRepository,
	resolver *authz.Resolver,
	logger *zap.Logger,
) EnergyService {
	return &energyService{
		energy:    energy,
		devices:   devices,
		buildings: buildings,
		resolver:  resolver,
		logger:    logger,
	}
}

// authorizeDevice reuses the visibility filter: the caller may read a
// device's energy exactly when the device itself would be visible.
func (s *energyService) authorizeDevice(ctx context.Context, sess authz.Session, deviceID string) (*domain.Device, error) {
	d, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !d.LocationID.Valid {
		return nil, apperrors.NotFound("device %s is not assigned to any building", deviceID)
	}
	loc, err := s.buildings.GetLocation(ctx, d.LocationID.String)
	if err != nil {
		return nil, err
	}
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	visible, err := authz.VisibleDevices(rs, loc.BuildingID, []*domain.Device{d})
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, apperrors.PermissionDenied("no access to device %s", deviceID)
	}
	return d, nil
}

func (s *energyService) DailySeries(ctx context.Context, sess authz.Session, req EnergyRangeRequest) (*DailySeriesResponse, error) {
	if req.To.Before(req.From) {
		return nil, apperrors.Validation("range end is before range start")
	}
	if _, err := s.authorizeDevice(ctx, sess, req.DeviceID); err != nil {
		return nil, err
	}

	series, err := s.energy.DailySeries(ctx, req.DeviceID, req.From, req.To)
	if err != nil {
		return nil, err
	}

	points := make([]DailyPoint, 0, len(series))
	for _, u := range series {
		points = append(points, DailyPoint{
			Day:      u.Day.Format("2006-01-02"),
			UsageKWh: u.UsageKWh,
		})
	}
	return &DailySeriesResponse{DeviceID: req.DeviceID, Points: points}, nil
}

var energyExportHeader = []string{"Day", "Usage (kWh)"}

func (s *energyService) ExportXLSX(ctx context.Context, sess authz.Session, req EnergyRangeRequest) ([]byte, error) {
	resp, err := s.DailySeries(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	// No deferred Close: WriteTo needs the file open.

	sheetName := "Energy Usage"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, h := range energyExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}
	for i, p := range resp.Points {
		dayCell, _ := excelize.CoordinatesToCellName(1, i+2)
		usageCell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := f.SetCellValue(sheetName, dayCell, p.Day); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheetName, usageCell, p.UsageKWh); err != nil {
			f.Close()
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
