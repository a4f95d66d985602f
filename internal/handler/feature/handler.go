// Package feature exposes one lifecycle controller and its history over HTTP.
package feature

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/service/history"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
	"github.com/zhouzirui/lexdesk/backend/pkg/utils"
)

// persistWarning 在持久化失败但内存状态已生效时返回给前端。
const persistWarning = "history could not be saved; it is kept for this session only"

// Decoder 从请求中解析功能输入。
type Decoder[I any] func(r *http.Request) (I, error)

// Handler 单个功能的HTTP处理器
type Handler[I any, R any, M any] struct {
	ctrl   *lifecycle.Controller[I, R, M]
	decode Decoder[I]
	log    zerolog.Logger
}

// New 创建功能处理器
func New[I any, R any, M any](ctrl *lifecycle.Controller[I, R, M], decode Decoder[I], logger zerolog.Logger) *Handler[I, R, M] {
	return &Handler[I, R, M]{
		ctrl:   ctrl,
		decode: decode,
		log:    logger.With().Str("component", "handler").Str("feature", ctrl.Snapshot().Feature).Logger(),
	}
}

// RegisterRoutes 注册功能相关的路由
func (h *Handler[I, R, M]) RegisterRoutes(r chi.Router) {
	r.Post("/submit", h.handleSubmit)
	r.Post("/regenerate", h.handleRegenerate)
	r.Post("/cancel", h.handleCancel)
	r.Get("/state", h.handleState)
	r.Put("/draft", h.handleDraft)

	r.Get("/history", h.handleQuery)
	r.Delete("/history", h.handleClear)
	r.Get("/history/export", h.handleExport)
	r.Get("/history/{id}", h.handleGet)
	r.Patch("/history/{id}", h.handleAnnotate)
	r.Delete("/history/{id}", h.handleRemove)
}

type outcomeResponse[R any, M any] struct {
	Record  *model.Record[R, M] `json:"record,omitempty"`
	Result  R                   `json:"result"`
	Failed  bool                `json:"failed"`
	Error   string              `json:"error,omitempty"`
	Warning string              `json:"warning,omitempty"`
	State   lifecycle.Snapshot  `json:"state"`
}

// handleSubmit 提交请求并等待结果
func (h *Handler[I, R, M]) handleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.ctrl.Submit(r.Context(), in)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}
	h.respondOutcome(w, out)
}

// handleRegenerate 重新提交最近一次可重放的输入
func (h *Handler[I, R, M]) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	out, ok, err := h.ctrl.Regenerate(r.Context())
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}
	if !ok {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"regenerated": false,
			"state":       h.ctrl.Snapshot(),
		})
		return
	}
	h.respondOutcome(w, out)
}

func (h *Handler[I, R, M]) handleCancel(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"canceled": h.ctrl.Cancel(),
		"state":    h.ctrl.Snapshot(),
	})
}

func (h *Handler[I, R, M]) handleState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// handleDraft 保存输入框草稿
func (h *Handler[I, R, M]) handleDraft(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Draft string `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.ctrl.SetDraft(payload.Draft)
	utils.RespondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// handleQuery 按筛选、搜索、排序返回历史记录
func (h *Handler[I, R, M]) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := h.ctrl.Store()
	records := store.Query(q)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
		"total":   store.Len(),
	})
}

func parseQuery(r *http.Request) (model.Query, error) {
	values := r.URL.Query()
	q := model.DefaultQuery()

	filter, err := model.ParseFilter(values.Get("filter"))
	if err != nil {
		return q, err
	}
	q.Filter = filter

	sortKey, err := model.ParseSortKey(values.Get("sort"))
	if err != nil {
		return q, err
	}
	q.Sort = sortKey

	if raw := strings.TrimSpace(values.Get("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, errors.New("threshold must be a number")
		}
		q.Threshold = v
	} else {
		q.Threshold = defaultThreshold(values.Get("filter"))
	}

	q.Search = values.Get("q")
	return q, nil
}

// defaultThreshold 兼容 high-risk / low-risk 这类自带阈值的筛选别名。
func defaultThreshold(raw string) float64 {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high-risk":
		return legal.HighRiskThreshold
	case "low-risk":
		return legal.LowRiskThreshold
	}
	return 0
}

func (h *Handler[I, R, M]) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ctrl.Store().Get(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "record not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

// handleAnnotate 更新点赞与收藏状态
func (h *Handler[I, R, M]) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mutate, err := annotationMutator(payload)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	found, err := h.ctrl.Store().Update(r.Context(), id, mutate)
	if !found {
		utils.RespondError(w, http.StatusNotFound, "record not found")
		return
	}

	rec, _ := h.ctrl.Store().Get(id)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"record":  rec,
		"warning": h.warning(err),
	})
}

// annotationMutator 解析 {liked: true|false|null, bookmarked: bool, toggleBookmark: bool}。
func annotationMutator(payload map[string]json.RawMessage) (func(*model.Annotations), error) {
	var (
		setLiked   bool
		liked      model.Liked
		bookmarked *bool
		toggle     bool
	)

	if raw, ok := payload["liked"]; ok {
		if err := json.Unmarshal(raw, &liked); err != nil {
			return nil, errors.New("liked must be true, false or null")
		}
		setLiked = true
	}
	if raw, ok := payload["bookmarked"]; ok {
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.New("bookmarked must be a boolean")
		}
		bookmarked = &v
	}
	if raw, ok := payload["toggleBookmark"]; ok {
		if err := json.Unmarshal(raw, &toggle); err != nil {
			return nil, errors.New("toggleBookmark must be a boolean")
		}
	}
	if !setLiked && bookmarked == nil && !toggle {
		return nil, errors.New("nothing to update")
	}

	return func(a *model.Annotations) {
		if setLiked {
			model.SetLiked(liked)(a)
		}
		if bookmarked != nil {
			model.SetBookmarked(*bookmarked)(a)
		}
		if toggle {
			model.ToggleBookmark()(a)
		}
	}, nil
}

func (h *Handler[I, R, M]) handleRemove(w http.ResponseWriter, r *http.Request) {
	found, err := h.ctrl.Store().Remove(r.Context(), chi.URLParam(r, "id"))
	if !found {
		utils.RespondError(w, http.StatusNotFound, "record not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"removed": true,
		"warning": h.warning(err),
	})
}

func (h *Handler[I, R, M]) handleClear(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.Store().Clear(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"cleared": true,
		"warning": h.warning(err),
	})
}

// handleExport 以JSON附件形式导出完整历史
func (h *Handler[I, R, M]) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.ctrl.Store().Export()
	if err != nil {
		h.log.Error().Err(err).Msg("history export failed")
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	utils.RespondAttachment(w, name, "application/json", data)
}

func (h *Handler[I, R, M]) respondOutcome(w http.ResponseWriter, out lifecycle.Outcome[R, M]) {
	resp := outcomeResponse[R, M]{
		Record:  out.Record,
		Result:  out.Result,
		Failed:  out.Failed,
		Warning: out.Warning,
		State:   h.ctrl.Snapshot(),
	}
	if out.Failed {
		resp.Error = out.Message
		utils.RespondJSON(w, http.StatusBadGateway, resp)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler[I, R, M]) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), lifecycle.ErrValidation.Error()+": "))
	case errors.Is(err, lifecycle.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrCanceled):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("submit failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

// warning 把持久化失败转换为提示信息，其他错误只记录日志。
func (h *Handler[I, R, M]) warning(err error) string {
	if err == nil {
		return ""
	}
	if !errors.Is(err, history.ErrPersist) {
		h.log.Error().Err(err).Msg("history mutation failed")
	}
	return persistWarning
}
