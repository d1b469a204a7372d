package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/authz"
	"homegrid-data/internal/service"
)

// BuildingHandler 楼宇管理 Handler（含嵌套的位置/设备/邀请路由）
type BuildingHandler struct {
	guard       *sessionGuard
	buildings   service.BuildingService
	devices     service.DeviceService
	invitations service.InvitationService
	logger      *zap.Logger
}

func NewBuildingHandler(
	auth service.AuthService,
	buildings service.BuildingService,
	devices service.DeviceService,
	invitations service.InvitationService,
	logger *zap.Logger,
) *BuildingHandler {
	return &BuildingHandler{
		guard:       &sessionGuard{auth: auth, logger: logger},
		buildings:   buildings,
		devices:     devices,
		invitations: invitations,
		logger:      logger,
	}
}

const buildingsPrefix = "/admin/api/v1/buildings"

// ServeHTTP 路由分发
//
//	/buildings                              GET list | POST create
//	/buildings/{id}                         GET | PUT | DELETE
//	/buildings/{id}/locations               GET | POST
//	/buildings/{id}/locations/{locationID}  DELETE
//	/buildings/{id}/devices                 GET
//	/buildings/{id}/invitations             POST
//	/buildings/{id}/users/{email}/locations PUT
func (h *BuildingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, buildingsPrefix), "/")

	sess, ok := h.guard.require(w, r)
	if !ok {
		return
	}

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r, sess)
		case http.MethodPost:
			h.create(w, r, sess)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(rest, "/")
	buildingID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, sess, buildingID)
		case http.MethodPut:
			h.update(w, r, sess, buildingID)
		case http.MethodDelete:
			h.delete(w, r, sess, buildingID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "locations":
		switch r.Method {
		case http.MethodGet:
			h.listLocations(w, r, sess, buildingID)
		case http.MethodPost:
			h.addLocation(w, r, sess, buildingID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "locations":
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.removeLocation(w, r, sess, buildingID, parts[2])
	case len(parts) == 2 && parts[1] == "devices":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.listDevices(w, r, sess, buildingID)
	case len(parts) == 2 && parts[1] == "invitations":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.invite(w, r, sess, buildingID)
	case len(parts) == 4 && parts[1] == "users" && parts[3] == "locations":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.assignUserLocations(w, r, sess, buildingID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BuildingHandler) list(w http.ResponseWriter, r *http.Request, sess authz.Session) {
	resp, err := h.buildings.ListBuildings(r.Context(), sess)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *BuildingHandler) get(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	resp, err := h.buildings.GetBuilding(r.Context(), sess, buildingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *BuildingHandler) create(w http.ResponseWriter, r *http.Request, sess authz.Session) {
	var body struct {
		BuildingID    string `json:"building_id"`
		Name          string `json:"name"`
		Address       string `json:"address"`
		Description   string `json:"description"`
		FirstLocation string `json:"first_location"`
		DeviceID      string `json:"device_id"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.buildings.CreateBuilding(r.Context(), sess, service.CreateBuildingRequest{
		BuildingID:    body.BuildingID,
		Name:          body.Name,
		Address:       body.Address,
		Description:   body.Description,
		FirstLocation: body.FirstLocation,
		DeviceID:      body.DeviceID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *BuildingHandler) update(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	var body struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		Description string `json:"description"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	err := h.buildings.UpdateBuilding(r.Context(), sess, buildingID, service.UpdateBuildingRequest{
		Name:        body.Name,
		Address:     body.Address,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}

func (h *BuildingHandler) delete(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	if err := h.buildings.DeleteBuilding(r.Context(), sess, buildingID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}

func (h *BuildingHandler) listLocations(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	resp, err := h.buildings.ListLocations(r.Context(), sess, buildingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *BuildingHandler) addLocation(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	var body struct {
		Name string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.buildings.AddLocation(r.Context(), sess, buildingID, body.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *BuildingHandler) removeLocation(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID, locationID string) {
	if err := h.buildings.RemoveLocation(r.Context(), sess, buildingID, locationID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}

func (h *BuildingHandler) listDevices(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	resp, err := h.devices.ListDevices(r.Context(), sess, buildingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *BuildingHandler) invite(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID string) {
	var body struct {
		Email string `json:"email"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.invitations.Invite(r.Context(), sess, service.InviteRequest{
		BuildingID: buildingID,
		Email:      body.Email,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *BuildingHandler) assignUserLocations(w http.ResponseWriter, r *http.Request, sess authz.Session, buildingID, email string) {
	var body struct {
		LocationIDs []string `json:"location_ids"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.buildings.AssignUserLocations(r.Context(), sess, buildingID, email, body.LocationIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}
