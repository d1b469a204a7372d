package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
)

// BuildingService 楼宇管理服务接口
type BuildingService interface {
	ListBuildings(ctx context.Context, sess authz.Session) (*ListBuildingsResponse, error)
	GetBuilding(ctx context.Context, sess authz.Session, buildingID string) (*GetBuildingResponse, error)
	CreateBuilding(ctx context.Context, sess authz.Session, req CreateBuildingRequest) (*CreateBuildingResponse, error)
	UpdateBuilding(ctx context.Context, sess authz.Session, buildingID string, req UpdateBuildingRequest) error
	DeleteBuilding(ctx context.Context, sess authz.Session, buildingID string) error

	ListLocations(ctx context.Context, sess authz.Session, buildingID string) (*ListLocationsResponse, error)
	AddLocation(ctx context.Context, sess authz.Session, buildingID string, locationName string) (*AddLocationResponse, error)
	RemoveLocation(ctx context.Context, sess authz.Session, buildingID, locationID string) error

	// AssignUserLocations replaces a children user's visible-location set.
	AssignUserLocations(ctx context.Context, sess authz.Session, buildingID, userEmail string, locationIDs []string) error
}

type BuildingView struct {
	BuildingID  string `json:"building_id"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	Role        string `json:"role,omitempty"` // caller's role, "" for system admin
}

type ListBuildingsResponse struct {
	Items []BuildingView `json:"items"`
}

type GetBuildingResponse struct {
	Building BuildingView `json:"building"`
}

type CreateBuildingRequest struct {
	BuildingID    string
	Name          string
	Address       string
	Description   string
	FirstLocation string
	// DeviceID optionally assigns a pre-provisioned device to the first
	// location as part of creation.
	DeviceID string
}

type CreateBuildingResponse struct {
	BuildingID string `json:"building_id"`
	LocationID string `json:"location_id"`
}

type UpdateBuildingRequest struct {
	Name        string
	Address     string
	Description string
}

type LocationView struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
}

type ListLocationsResponse struct {
	Items []LocationView `json:"items"`
}

type AddLocationResponse struct {
	LocationID string `json:"location_id"`
}

type buildingService struct {
	buildings   repository.BuildingsRepository
	memberships repository.MembershipsRepository
	resolver    *authz.Resolver
	logger      *zap.Logger
}

func NewBuildingService(
	buildings repository.BuildingsRepository,
	memberships repository.MembershipsRepository,
	resolver *authz.Resolver,
	logger *zap.Logger,
) BuildingService {
	return &buildingService{
		buildings:   buildings,
		memberships: memberships,
		resolver:    resolver,
		logger:      logger,
	}
}

func buildingView(b *domain.Building, role domain.Role) BuildingView {
	v := BuildingView{
		BuildingID: b.BuildingID,
		Name:       b.Name,
		CreatedBy:  b.CreatedBy,
		Role:       string(role),
	}
	if b.Address.Valid {
		v.Address = b.Address.String
	}
	if b.Description.Valid {
		v.Description = b.Description.String
	}
	return v
}

func (s *buildingService) ListBuildings(ctx context.Context, sess authz.Session) (*ListBuildingsResponse, error) {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}

	var buildings []*domain.Building
	if rs.IsSystemAdmin() {
		buildings, err = s.buildings.ListAllBuildings(ctx)
	} else {
		buildings, err = s.buildings.ListBuildings(ctx, rs.Buildings())
	}
	if err != nil {
		return nil, err
	}

	items := make([]BuildingView, 0, len(buildings))
	for _, b := range buildings {
		items = append(items, buildingView(b, rs.RoleIn(b.BuildingID)))
	}
	return &ListBuildingsResponse{Items: items}, nil
}

func (s *buildingService) GetBuilding(ctx context.Context, sess authz.Session, buildingID string) (*GetBuildingResponse, error) {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewBuilding(rs, buildingID) {
		return nil, apperrors.PermissionDenied("no access to building %s", buildingID)
	}
	b, err := s.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	return &GetBuildingResponse{Building: buildingView(b, rs.RoleIn(buildingID))}, nil
}

func (s *buildingService) CreateBuilding(ctx context.Context, sess authz.Session, req CreateBuildingRequest) (*CreateBuildingResponse, error) {
	buildingID := strings.TrimSpace(req.BuildingID)
	if buildingID == "" || strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("building id and name are required")
	}
	if strings.TrimSpace(req.FirstLocation) == "" {
		return nil, apperrors.Validation("a building needs at least one location")
	}

	b := &domain.Building{
		BuildingID: buildingID,
		Name:       strings.TrimSpace(req.Name),
		CreatedBy:  sess.Email,
	}
	if req.Address != "" {
		b.Address = sql.NullString{String: req.Address, Valid: true}
	}
	if req.Description != "" {
		b.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.buildings.CreateBuilding(ctx, b, req.FirstLocation, req.DeviceID); err != nil {
		return nil, err
	}
	s.logger.Info("building created",
		zap.String("building_id", buildingID),
		zap.String("created_by", sess.Email))
	return &CreateBuildingResponse{
		BuildingID: buildingID,
		LocationID: domain.LocationID(buildingID, req.FirstLocation),
	}, nil
}

func (s *buildingService) UpdateBuilding(ctx context.Context, sess authz.Session, buildingID string, req UpdateBuildingRequest) error {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanEditBuilding(rs, buildingID) {
		return apperrors.PermissionDenied("only a parent may edit building %s", buildingID)
	}

	b := &domain.Building{
		Name:      strings.TrimSpace(req.Name),
		UpdatedBy: sql.NullString{String: sess.Email, Valid: true},
	}
	if req.Address != "" {
		b.Address = sql.NullString{String: req.Address, Valid: true}
	}
	if req.Description != "" {
		b.Description = sql.NullString{String: req.Description, Valid: true}
	}
	return s.buildings.UpdateBuilding(ctx, buildingID, b)
}

func (s *buildingService) DeleteBuilding(ctx context.Context, sess authz.Session, buildingID string) error {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanDeleteBuilding(rs, buildingID) {
		return apperrors.PermissionDenied("only a parent may delete building %s", buildingID)
	}
	if err := s.buildings.DeleteBuildingCascade(ctx, buildingID); err != nil {
		return err
	}
	s.logger.Info("building deleted",
		zap.String("building_id", buildingID),
		zap.String("deleted_by", sess.Email))
	return nil
}

func (s *buildingService) ListLocations(ctx context.Context, sess authz.Session, buildingID string) (*ListLocationsResponse, error) {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	all, err := s.buildings.ListLocations(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	visible, err := authz.VisibleLocations(rs, buildingID, all)
	if err != nil {
		return nil, err
	}
	items := make([]LocationView, 0, len(visible))
	for _, l := range visible {
		items = append(items, LocationView{LocationID: l.LocationID, Name: l.Name})
	}
	return &ListLocationsResponse{Items: items}, nil
}

func (s *buildingService) AddLocation(ctx context.Context, sess authz.Session, buildingID string, locationName string) (*AddLocationResponse, error) {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageLocations(rs, buildingID) {
		return nil, apperrors.PermissionDenied("only a parent may manage locations of %s", buildingID)
	}
	locationName = strings.TrimSpace(locationName)
	if locationName == "" {
		return nil, apperrors.Validation("location name is required")
	}
	// Building must exist; a dangling location row is worse than an extra read.
	if _, err := s.buildings.GetBuilding(ctx, buildingID); err != nil {
		return nil, err
	}

	l := &domain.Location{
		LocationID: domain.LocationID(buildingID, locationName),
		BuildingID: buildingID,
		Name:       locationName,
	}
	if err := s.buildings.CreateLocation(ctx, l); err != nil {
		return nil, err
	}
	return &AddLocationResponse{LocationID: l.LocationID}, nil
}

func (s *buildingService) RemoveLocation(ctx context.Context, sess authz.Session, buildingID, locationID string) error {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanManageLocations(rs, buildingID) {
		return apperrors.PermissionDenied("only a parent may manage locations of %s", buildingID)
	}
	return s.buildings.DeleteLocation(ctx, buildingID, locationID)
}

func (s *buildingService) AssignUserLocations(ctx context.Context, sess authz.Session, buildingID, userEmail string, locationIDs []string) error {
	rs, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	if !authz.CanManageLocations(rs, buildingID) {
		return apperrors.PermissionDenied("only a parent may assign locations in %s", buildingID)
	}

	target, err := s.memberships.GetMembership(ctx, userEmail, buildingID)
	if err != nil {
		return err
	}
	if target.Role != domain.RoleChildren {
		return apperrors.Validation("locations can only be assigned to children users")
	}

	// Every assigned id must be a location of this building.
	all, err := s.buildings.ListLocations(ctx, buildingID)
	if err != nil {
		return err
	}
	valid := make(map[string]bool, len(all))
	for _, l := range all {
		valid[l.LocationID] = true
	}
	for _, id := range locationIDs {
		if !valid[id] {
			return apperrors.Validation("location %s does not belong to building %s", id, buildingID)
		}
	}

	return s.memberships.UpdateAssignedLocations(ctx, userEmail, buildingID, locationIDs)
}
