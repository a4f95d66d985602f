package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	eventsHandler "github.com/zhouzirui/lexdesk/backend/internal/handler/events"
	"github.com/zhouzirui/lexdesk/backend/internal/handler/feature"
	modeHandler "github.com/zhouzirui/lexdesk/backend/internal/handler/mode"
	"github.com/zhouzirui/lexdesk/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/lexdesk/backend/internal/middleware"
	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
	"github.com/zhouzirui/lexdesk/backend/internal/service/events"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
	"github.com/zhouzirui/lexdesk/backend/pkg/utils"
)

// HealthChecker 探测远端推理服务是否可用。
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies 汇总路由所需的服务。
type Dependencies struct {
	Workspace   *assistant.Workspace
	Broker      *events.Broker
	Metrics     *metrics.Metrics
	Inference   HealthChecker
	CORSOrigins []string
	ChatBackend string
	Logger      zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.AccessLog(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.CORSOrigins))

	ws := deps.Workspace
	logger := deps.Logger

	r.Route("/api", func(api chi.Router) {
		modeHandler.New(ws.Modes()).RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			status := map[string]any{"status": "ok", "chatBackend": deps.ChatBackend}
			if deps.Inference != nil {
				ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
				defer cancel()
				if err := deps.Inference.Health(ctx); err != nil {
					status["inference"] = "unreachable"
					status["status"] = "degraded"
				} else {
					status["inference"] = "ok"
				}
			}
			utils.RespondJSON(w, http.StatusOK, status)
		})

		api.Route("/"+mode.FeatureChat, func(fr chi.Router) {
			feature.New(ws.Chat, feature.DecodeChat, logger).RegisterRoutes(fr)
			mountEvents(fr, deps, mode.FeatureChat, ws.Chat.Snapshot)
		})
		api.Route("/"+mode.FeatureSummary, func(fr chi.Router) {
			feature.New(ws.Summary, feature.DecodeSummary, logger).RegisterRoutes(fr)
			mountEvents(fr, deps, mode.FeatureSummary, ws.Summary.Snapshot)
		})
		api.Route("/"+mode.FeatureAnalysis, func(fr chi.Router) {
			feature.New(ws.Analysis, feature.DecodeAnalysis, logger).RegisterRoutes(fr)
			mountEvents(fr, deps, mode.FeatureAnalysis, ws.Analysis.Snapshot)
		})
		api.Route("/"+mode.FeatureCitation, func(fr chi.Router) {
			feature.New(ws.Citation, feature.DecodeCitation, logger).RegisterRoutes(fr)
			mountEvents(fr, deps, mode.FeatureCitation, ws.Citation.Snapshot)
		})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	return r
}

func mountEvents(r chi.Router, deps Dependencies, name string, snapshot func() lifecycle.Snapshot) {
	if deps.Broker == nil {
		return
	}
	eventsHandler.New(name, deps.Broker, snapshot, originChecker(deps.CORSOrigins), deps.Logger).RegisterRoutes(r)
}

// originChecker 复用 CORS 白名单校验 WebSocket 握手来源。
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
