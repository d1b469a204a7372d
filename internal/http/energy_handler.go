package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"homegrid-data/internal/service"
)

// EnergyHandler 用电量可视化 Handler（只读）
type EnergyHandler struct {
	guard  *sessionGuard
	energy service.EnergyService
	logger *zap.Logger
}

func NewEnergyHandler(auth service.AuthService, energy service.EnergyService, logger *zap.Logger) *EnergyHandler {
	return &EnergyHandler{
		guard:  &sessionGuard{auth: auth, logger: logger},
		energy: energy,
		logger: logger,
	}
}

const energyPrefix = "/data/api/v1/energy/"

// ServeHTTP 路由分发
//
//	/energy/{deviceID}/daily?from=YYYY-MM-DD&to=YYYY-MM-DD   GET
//	/energy/{deviceID}/export?from=...&to=...                GET (xlsx)
func (h *EnergyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, energyPrefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := h.guard.require(w, r)
	if !ok {
		return
	}

	req, err := rangeFromQuery(parts[0], r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	switch parts[1] {
	case "daily":
		resp, err := h.energy.DailySeries(r.Context(), sess, req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
	case "export":
		raw, err := h.energy.ExportXLSX(r.Context(), sess, req)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		filename := fmt.Sprintf("energy_%s_%s_%s.xlsx",
			req.DeviceID, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func rangeFromQuery(deviceID string, r *http.Request) (service.EnergyRangeRequest, error) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		return service.EnergyRangeRequest{}, fmt.Errorf("invalid from date, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		return service.EnergyRangeRequest{}, fmt.Errorf("invalid to date, expected YYYY-MM-DD")
	}
	return service.EnergyRangeRequest{DeviceID: deviceID, From: from, To: to}, nil
}
