package mode

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
	"github.com/zhouzirui/lexdesk/backend/pkg/utils"
)

// Handler 模式目录的HTTP处理器
type Handler struct {
	modes mode.Store
}

// New 创建模式处理器
func New(modes mode.Store) *Handler {
	return &Handler{modes: modes}
}

// RegisterRoutes 注册模式相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/modes", h.handleListModes)
}

// handleListModes 列出模式，可按 feature 过滤
func (h *Handler) handleListModes(w http.ResponseWriter, r *http.Request) {
	feature := r.URL.Query().Get("feature")
	switch feature {
	case "", mode.FeatureChat, mode.FeatureSummary, mode.FeatureAnalysis, mode.FeatureCitation:
	default:
		utils.RespondError(w, http.StatusNotFound, "unknown feature")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.modes.List(feature))
}
