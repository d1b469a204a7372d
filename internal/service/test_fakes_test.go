package service

import (
	"context"
	"sync"
	"time"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/notify"
)

// In-memory repository fakes shared by the service tests. They implement
// the same validation-relevant behavior as the Postgres implementations
// (not-found errors, duplicate conflicts) without a database.

type memKey struct{ a, b string }

type memStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	buildings   map[string]*domain.Building
	locations   map[string]*domain.Location
	devices     map[string]*domain.Device
	memberships map[memKey]*domain.Membership
	invitations map[string]*domain.Invitation
	daily       map[memKey]float64 // (deviceID, day)
	events      []*domain.StatusEvent

	// Set to make the next CreateMembership fail once.
	failNextCreateMembership error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*domain.User{},
		buildings:   map[string]*domain.Building{},
		locations:   map[string]*domain.Location{},
		devices:     map[string]*domain.Device{},
		memberships: map[memKey]*domain.Membership{},
		invitations: map[string]*domain.Invitation{},
		daily:       map[memKey]float64{},
	}
}

// --- UsersRepository ---

func (m *memStore) GetUser(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[domain.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found: %s", email)
}

func (m *memStore) UserExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[domain.NormalizeEmail(email)]
	return ok, nil
}

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	if _, ok := m.users[email]; ok {
		return apperrors.Conflict("email already registered: %s", email)
	}
	m.users[email] = user
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, email string, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[domain.NormalizeEmail(email)]
	if !ok {
		return apperrors.NotFound("user not found: %s", email)
	}
	existing.DisplayName = user.DisplayName
	existing.ContactNumber = user.ContactNumber
	existing.UpdatedBy = user.UpdatedBy
	return nil
}

// --- BuildingsRepository ---

func (m *memStore) GetBuilding(_ context.Context, buildingID string) (*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buildings[buildingID]; ok {
		return b, nil
	}
	return nil, apperrors.NotFound("building not found: %s", buildingID)
}

func (m *memStore) ListBuildings(_ context.Context, buildingIDs []string) ([]*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Building{}
	for _, id := range buildingIDs {
		if b, ok := m.buildings[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListAllBuildings(_ context.Context) ([]*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Building{}
	for _, b := range m.buildings {
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) CreateBuilding(_ context.Context, building *domain.Building, firstLocation string, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buildings[building.BuildingID]; ok {
		return apperrors.Validation("building id already exists: %s", building.BuildingID)
	}
	if building.BuildingID == domain.SystemAdminBuilding {
		return apperrors.Validation("building id %q is reserved", domain.SystemAdminBuilding)
	}
	m.buildings[building.BuildingID] = building
	locID := domain.LocationID(building.BuildingID, firstLocation)
	m.locations[locID] = &domain.Location{
		LocationID: locID,
		BuildingID: building.BuildingID,
		Name:       firstLocation,
	}
	m.memberships[memKey{domain.NormalizeEmail(building.CreatedBy), building.BuildingID}] = &domain.Membership{
		UserEmail:         domain.NormalizeEmail(building.CreatedBy),
		BuildingID:        building.BuildingID,
		Role:              domain.RoleParent,
		AssignedLocations: []string{},
	}
	if deviceID != "" {
		d, ok := m.devices[deviceID]
		if !ok {
			return apperrors.NotFound("device not found: %s", deviceID)
		}
		d.LocationID.String = locID
		d.LocationID.Valid = true
	}
	return nil
}

func (m *memStore) UpdateBuilding(_ context.Context, buildingID string, building *domain.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.buildings[buildingID]
	if !ok {
		return apperrors.NotFound("building not found: %s", buildingID)
	}
	existing.Name = building.Name
	existing.Address = building.Address
	existing.Description = building.Description
	existing.UpdatedBy = building.UpdatedBy
	return nil
}

func (m *memStore) DeleteBuildingCascade(_ context.Context, buildingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buildings[buildingID]; !ok {
		return apperrors.NotFound("building not found: %s", buildingID)
	}
	for id, l := range m.locations {
		if l.BuildingID != buildingID {
			continue
		}
		for _, d := range m.devices {
			if d.LocationID.Valid && d.LocationID.String == id {
				d.LocationID.Valid = false
				d.LocationID.String = ""
			}
		}
		delete(m.locations, id)
	}
	for k := range m.memberships {
		if k.b == buildingID {
			delete(m.memberships, k)
		}
	}
	for id, inv := range m.invitations {
		if inv.BuildingID == buildingID {
			delete(m.invitations, id)
		}
	}
	delete(m.buildings, buildingID)
	return nil
}

func (m *memStore) ListLocations(_ context.Context, buildingID string) ([]*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Location{}
	for _, l := range m.locations {
		if l.BuildingID == buildingID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) GetLocation(_ context.Context, locationID string) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locations[locationID]; ok {
		return l, nil
	}
	return nil, apperrors.NotFound("location not found: %s", locationID)
}

func (m *memStore) CreateLocation(_ context.Context, location *domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[location.LocationID]; ok {
		return apperrors.Validation("location already exists: %s", location.LocationID)
	}
	m.locations[location.LocationID] = location
	return nil
}

func (m *memStore) DeleteLocation(_ context.Context, buildingID, locationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[locationID]
	if !ok || l.BuildingID != buildingID {
		return apperrors.NotFound("location not found: %s", locationID)
	}
	for _, d := range m.devices {
		if d.LocationID.Valid && d.LocationID.String == locationID {
			return apperrors.Conflict("location %s still has device(s)", locationID)
		}
	}
	for k, mem := range m.memberships {
		if k.b != buildingID {
			continue
		}
		for _, id := range mem.AssignedLocations {
			if id == locationID {
				return apperrors.Conflict("location %s is assigned to user(s)", locationID)
			}
		}
	}
	delete(m.locations, locationID)
	return nil
}

// --- DevicesRepository ---

func (m *memStore) GetDevice(_ context.Context, deviceID string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[deviceID]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("device not found: %s", deviceID)
}

func (m *memStore) ListDevicesByBuilding(_ context.Context, buildingID string) ([]*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Device{}
	for _, d := range m.devices {
		if !d.LocationID.Valid {
			continue
		}
		if l, ok := m.locations[d.LocationID.String]; ok && l.BuildingID == buildingID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) AssignDevice(_ context.Context, deviceID, locationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		return apperrors.NotFound("device not found: %s", deviceID)
	}
	d.LocationID.String = locationID
	d.LocationID.Valid = true
	return nil
}

func (m *memStore) UnassignDevice(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		return apperrors.NotFound("device not found: %s", deviceID)
	}
	d.LocationID.Valid = false
	d.LocationID.String = ""
	return nil
}

// --- MembershipsRepository ---

func (m *memStore) ListRoleRows(_ context.Context, userEmail string) ([]*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Membership{}
	email := domain.NormalizeEmail(userEmail)
	for k, mem := range m.memberships {
		if k.a == email {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memStore) GetMembership(_ context.Context, userEmail, buildingID string) (*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.memberships[memKey{domain.NormalizeEmail(userEmail), buildingID}]; ok {
		return mem, nil
	}
	return nil, apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
}

func (m *memStore) ListBuildingMembers(_ context.Context, buildingID string) ([]*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Membership{}
	for k, mem := range m.memberships {
		if k.b == buildingID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memStore) CreateMembership(_ context.Context, mem *domain.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextCreateMembership; err != nil {
		m.failNextCreateMembership = nil
		return err
	}
	k := memKey{domain.NormalizeEmail(mem.UserEmail), mem.BuildingID}
	if _, ok := m.memberships[k]; ok {
		return apperrors.Conflict("%s already has a role in %s", mem.UserEmail, mem.BuildingID)
	}
	m.memberships[k] = mem
	return nil
}

func (m *memStore) DeleteMembership(_ context.Context, userEmail, buildingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{domain.NormalizeEmail(userEmail), buildingID}
	if _, ok := m.memberships[k]; !ok {
		return apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
	}
	delete(m.memberships, k)
	return nil
}

func (m *memStore) UpdateAssignedLocations(_ context.Context, userEmail, buildingID string, locationIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[memKey{domain.NormalizeEmail(userEmail), buildingID}]
	if !ok {
		return apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
	}
	mem.AssignedLocations = locationIDs
	return nil
}

// --- InvitationsRepository ---

func (m *memStore) CreateInvitation(_ context.Context, inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[inv.InvitationID] = inv
	return nil
}

func (m *memStore) GetInvitation(_ context.Context, invitationID string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invitations[invitationID]; ok {
		return inv, nil
	}
	return nil, apperrors.NotFound("invitation not found: %s", invitationID)
}

func (m *memStore) HasPendingInvitation(_ context.Context, buildingID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.BuildingID == buildingID &&
			inv.InvitedEmail == domain.NormalizeEmail(email) &&
			inv.Status == domain.InvitationInvited {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkDecided(_ context.Context, invitationID string, status domain.InvitationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[invitationID]
	if !ok {
		return apperrors.NotFound("invitation not found: %s", invitationID)
	}
	if inv.Status != domain.InvitationInvited {
		return apperrors.Conflict("invitation %s is no longer pending", invitationID)
	}
	inv.Status = status
	return nil
}

// --- EnergyRepository ---

func (m *memStore) DailySeries(_ context.Context, deviceID string, from, to time.Time) ([]*domain.DailyUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.DailyUsage{}
	for k, kwh := range m.daily {
		if k.a != deviceID {
			continue
		}
		day, err := time.Parse("2006-01-02", k.b)
		if err != nil {
			return nil, err
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, &domain.DailyUsage{DeviceID: deviceID, Day: day, UsageKWh: kwh})
	}
	return out, nil
}

func (m *memStore) AddDailyUsage(_ context.Context, deviceID string, day time.Time, deltaKWh float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{deviceID, day.Format("2006-01-02")}
	m.daily[k] += deltaKWh
	return nil
}

func (m *memStore) InsertStatusEvent(_ context.Context, ev *domain.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) LastStatus(_ context.Context, deviceID string) (domain.DeviceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].DeviceID == deviceID {
			return m.events[i].Status, nil
		}
	}
	return "", nil
}

// --- Notifier fake ---

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []notify.InvitationNotice
	failWith error
}

func (f *fakeNotifier) SendInvitation(_ context.Context, notice notify.InvitationNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, notice)
	return nil
}

// --- fixture helpers ---

func seedUser(m *memStore, email, name string) {
	m.users[domain.NormalizeEmail(email)] = &domain.User{Email: domain.NormalizeEmail(email), DisplayName: name}
}

func seedMembership(m *memStore, email, buildingID string, role domain.Role, assigned ...string) {
	if assigned == nil {
		assigned = []string{}
	}
	m.memberships[memKey{domain.NormalizeEmail(email), buildingID}] = &domain.Membership{
		UserEmail:         domain.NormalizeEmail(email),
		BuildingID:        buildingID,
		Role:              role,
		AssignedLocations: assigned,
	}
}

func seedBuilding(m *memStore, id, name, createdBy string) {
	m.buildings[id] = &domain.Building{BuildingID: id, Name: name, CreatedBy: createdBy}
}

func seedLocation(m *memStore, buildingID, name string) string {
	id := domain.LocationID(buildingID, name)
	m.locations[id] = &domain.Location{LocationID: id, BuildingID: buildingID, Name: name}
	return id
}

func seedDevice(m *memStore, id, locationID string, wattage int) {
	d := &domain.Device{DeviceID: id, WattageWatts: wattage}
	if locationID != "" {
		d.LocationID.String = locationID
		d.LocationID.Valid = true
	}
	m.devices[id] = d
}

func sessionFor(email string) authz.Session {
	return authz.Session{Email: domain.NormalizeEmail(email), IssuedAt: time.Now().UTC()}
}
