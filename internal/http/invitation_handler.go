package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/service"
)

// InvitationHandler 邀请应答 Handler（发起邀请走楼宇路由）
type InvitationHandler struct {
	guard       *sessionGuard
	invitations service.InvitationService
	logger      *zap.Logger
}

func NewInvitationHandler(auth service.AuthService, invitations service.InvitationService, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{
		guard:       &sessionGuard{auth: auth, logger: logger},
		invitations: invitations,
		logger:      logger,
	}
}

const invitationsPrefix = "/admin/api/v1/invitations/"

// ServeHTTP 路由分发
//
//	/invitations/{id}/accept   POST
//	/invitations/{id}/decline  POST
func (h *InvitationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, invitationsPrefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := h.guard.require(w, r)
	if !ok {
		return
	}

	invitationID := parts[0]
	var err error
	switch parts[1] {
	case "accept":
		err = h.invitations.Accept(r.Context(), sess, invitationID)
	case "decline":
		err = h.invitations.Decline(r.Context(), sess, invitationID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}
