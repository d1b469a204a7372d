package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 认证路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/auth/api/v1/login", h.ServeHTTP)
	r.Handle("/auth/api/v1/register", h.ServeHTTP)
	r.Handle("/auth/api/v1/logout", h.ServeHTTP)
}

// RegisterAdminRoutes 楼宇/位置/设备/用户/邀请管理路由
func (r *Router) RegisterAdminRoutes(b *BuildingHandler, d *DeviceHandler, u *UserHandler, i *InvitationHandler) {
	r.Handle("/admin/api/v1/buildings", b.ServeHTTP)
	r.Handle("/admin/api/v1/buildings/", b.ServeHTTP)

	r.Handle("/admin/api/v1/devices/", d.ServeHTTP)

	r.Handle("/admin/api/v1/users/", u.ServeHTTP)

	r.Handle("/admin/api/v1/invitations/", i.ServeHTTP)
}

// RegisterEnergyRoutes 用电量可视化路由（只读）
func (r *Router) RegisterEnergyRoutes(h *EnergyHandler) {
	r.Handle("/data/api/v1/energy/", h.ServeHTTP)
}
