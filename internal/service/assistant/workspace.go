// Package assistant wires one history store and one lifecycle controller per
// legal assistant feature.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
	"github.com/zhouzirui/lexdesk/backend/internal/service/history"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

// Options configure a Workspace.
type Options struct {
	Adapter storage.Adapter
	API     LegalAPI
	// ChatModel, when set, answers chat instead of API.
	ChatModel ChatModel
	Modes     mode.Store
	Timeout   time.Duration
	Logger    zerolog.Logger

	Events   lifecycle.Observer
	Recorder lifecycle.Recorder
	History  history.Observer
	NewID    func() string
}

// Workspace holds the four feature controllers.
type Workspace struct {
	api       LegalAPI
	chatModel ChatModel
	modes     mode.Store
	log       zerolog.Logger

	Chat     *lifecycle.Controller[legal.ChatInput, legal.ChatReply, legal.ChatMetrics]
	Summary  *lifecycle.Controller[legal.SummaryInput, legal.Summary, legal.SummaryMetrics]
	Analysis *lifecycle.Controller[legal.AnalysisInput, legal.Analysis, legal.AnalysisMetrics]
	Citation *lifecycle.Controller[legal.CitationInput, legal.CitationResult, legal.CitationMetrics]
}

// New builds the workspace. Call Initialize to hydrate the histories.
func New(opts Options) (*Workspace, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("assistant: storage adapter is required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("assistant: inference api is required")
	}
	if opts.Modes == nil {
		opts.Modes = mode.NewMemoryStore(mode.Seed())
	}

	w := &Workspace{
		api:       opts.API,
		chatModel: opts.ChatModel,
		modes:     opts.Modes,
		log:       opts.Logger.With().Str("component", "assistant").Logger(),
	}
	ctrlOpts := lifecycle.Options{
		Timeout:  opts.Timeout,
		Logger:   opts.Logger,
		Observer: opts.Events,
		Recorder: opts.Recorder,
		NewID:    opts.NewID,
	}

	chatStore, err := history.NewStore(history.Options[legal.ChatReply, legal.ChatMetrics]{
		Feature:    mode.FeatureChat,
		Key:        ChatKey,
		ExportName: ChatExport,
		Adapter:    opts.Adapter,
		Summary:    func(r legal.ChatReply) string { return r.Response },
		Metric:     func(m legal.ChatMetrics) float64 { return m.Confidence },
		Logger:     opts.Logger,
		Observer:   opts.History,
	})
	if err != nil {
		return nil, err
	}
	if w.Chat, err = lifecycle.New(chatStore, w.chatFeature(), ctrlOpts); err != nil {
		return nil, err
	}

	summaryStore, err := history.NewStore(history.Options[legal.Summary, legal.SummaryMetrics]{
		Feature:    mode.FeatureSummary,
		Key:        SummaryKey,
		ExportName: SummaryExport,
		Adapter:    opts.Adapter,
		Summary:    func(r legal.Summary) string { return r.Summary },
		Metric:     func(m legal.SummaryMetrics) float64 { return float64(m.KeyPointCount) },
		Logger:     opts.Logger,
		Observer:   opts.History,
	})
	if err != nil {
		return nil, err
	}
	if w.Summary, err = lifecycle.New(summaryStore, w.summaryFeature(), ctrlOpts); err != nil {
		return nil, err
	}

	analysisStore, err := history.NewStore(history.Options[legal.Analysis, legal.AnalysisMetrics]{
		Feature:    mode.FeatureAnalysis,
		Key:        AnalysisKey,
		ExportName: AnalysisExport,
		Adapter:    opts.Adapter,
		Summary:    func(r legal.Analysis) string { return r.Summary },
		Metric:     func(m legal.AnalysisMetrics) float64 { return m.RiskScore },
		Logger:     opts.Logger,
		Observer:   opts.History,
	})
	if err != nil {
		return nil, err
	}
	if w.Analysis, err = lifecycle.New(analysisStore, w.analysisFeature(), ctrlOpts); err != nil {
		return nil, err
	}

	citationStore, err := history.NewStore(history.Options[legal.CitationResult, legal.CitationMetrics]{
		Feature:    mode.FeatureCitation,
		Key:        CitationKey,
		ExportName: CitationExport,
		Adapter:    opts.Adapter,
		Summary:    legal.CitationResult.Summary,
		Metric:     func(m legal.CitationMetrics) float64 { return float64(m.CitationCount) },
		Logger:     opts.Logger,
		Observer:   opts.History,
	})
	if err != nil {
		return nil, err
	}
	if w.Citation, err = lifecycle.New(citationStore, w.citationFeature(), ctrlOpts); err != nil {
		return nil, err
	}

	return w, nil
}

// Initialize hydrates every feature history from storage.
func (w *Workspace) Initialize(ctx context.Context) {
	w.Chat.Store().Initialize(ctx)
	w.Summary.Store().Initialize(ctx)
	w.Analysis.Store().Initialize(ctx)
	w.Citation.Store().Initialize(ctx)
	w.log.Info().
		Int("chat", w.Chat.Store().Len()).
		Int("summary", w.Summary.Store().Len()).
		Int("analysis", w.Analysis.Store().Len()).
		Int("citation", w.Citation.Store().Len()).
		Msg("histories loaded")
}

// Modes returns the mode catalog.
func (w *Workspace) Modes() mode.Store { return w.modes }
