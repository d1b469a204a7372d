package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/service"
)

// DeviceHandler 设备分配 Handler
type DeviceHandler struct {
	guard   *sessionGuard
	devices service.DeviceService
	logger  *zap.Logger
}

func NewDeviceHandler(auth service.AuthService, devices service.DeviceService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		guard:   &sessionGuard{auth: auth, logger: logger},
		devices: devices,
		logger:  logger,
	}
}

const devicesPrefix = "/admin/api/v1/devices/"

// ServeHTTP 路由分发
//
//	/devices/{id}/assign  POST (body: building_id, location_id) | DELETE
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, devicesPrefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "assign" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	deviceID := parts[0]

	sess, ok := h.guard.require(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body struct {
			BuildingID string `json:"building_id"`
			LocationID string `json:"location_id"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		err := h.devices.AssignDevice(r.Context(), sess, service.AssignDeviceRequest{
			DeviceID:   deviceID,
			BuildingID: body.BuildingID,
			LocationID: body.LocationID,
		})
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{}))
	case http.MethodDelete:
		if err := h.devices.UnassignDevice(r.Context(), sess, deviceID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
