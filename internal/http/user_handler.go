package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/service"
)

// UserHandler 用户管理 Handler
type UserHandler struct {
	guard  *sessionGuard
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(auth service.AuthService, users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		guard:  &sessionGuard{auth: auth, logger: logger},
		users:  users,
		logger: logger,
	}
}

const usersPrefix = "/admin/api/v1/users/"

// ServeHTTP 路由分发
//
//	/users/lookup?email=...                GET（仅存在性 + 显示名）
//	/users/{email}                         GET | PUT
//	/users/{email}/buildings/{buildingID}  DELETE
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, usersPrefix), "/")

	sess, ok := h.guard.require(w, r)
	if !ok {
		return
	}

	if rest == "lookup" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resp, err := h.users.LookupUser(r.Context(), sess, r.URL.Query().Get("email"))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
		return
	}

	parts := strings.Split(rest, "/")
	email := parts[0]
	if email == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			resp, err := h.users.GetProfile(r.Context(), sess, email)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
		case http.MethodPut:
			var body struct {
				DisplayName   string `json:"display_name"`
				ContactNumber string `json:"contact_number"`
			}
			if err := readBodyJSON(r, 1<<20, &body); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			err := h.users.UpdateUser(r.Context(), sess, email, service.UpdateUserRequest{
				DisplayName:   body.DisplayName,
				ContactNumber: body.ContactNumber,
			})
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{}))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "buildings":
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.users.RemoveFromBuilding(r.Context(), sess, email, parts[2]); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{}))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
