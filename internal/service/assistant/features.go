package assistant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
	"github.com/zhouzirui/lexdesk/backend/internal/service/ai"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
)

// Storage keys and export file names, one per feature.
const (
	ChatKey     = "legalChatHistory"
	SummaryKey  = "summaryHistory"
	AnalysisKey = "contractAnalysisHistory"
	CitationKey = "citationChatHistory"

	ChatExport     = "legal-chat-history.json"
	SummaryExport  = "summary-history.json"
	AnalysisExport = "contract-analysis-history.json"
	CitationExport = "citation-history.json"
)

// User facing failure messages.
const (
	ChatFailureReply       = "I apologize, but I'm experiencing technical difficulties. Please try again in a moment."
	SummaryFailureMessage  = "Failed to summarize the document. Please try again."
	AnalysisFailureMessage = "Failed to analyze the contract. Please try again."
	CitationFailureMessage = "Failed to look up citations. Please try again."
)

// MaxUploadBytes bounds uploaded documents.
const MaxUploadBytes = 10 << 20

var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrUnsupportedFile = errors.New("please select a PDF, Word document, or text file")
	ErrFileTooLarge    = errors.New("file exceeds the upload limit")
	ErrUnknownMode     = errors.New("unknown mode")
)

var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// LegalAPI is the remote inference API.
type LegalAPI interface {
	Chat(ctx context.Context, in legal.ChatInput) (legal.ChatReply, error)
	Summarize(ctx context.Context, in legal.SummaryInput) (legal.Summary, error)
	Analyze(ctx context.Context, in legal.AnalysisInput) (legal.Analysis, error)
	Citations(ctx context.Context, in legal.CitationInput) (legal.CitationResult, error)
}

// ChatModel answers chat questions with conversation context.
type ChatModel interface {
	Chat(ctx context.Context, in legal.ChatInput, history []ai.Turn) (legal.ChatReply, error)
}

func validateDocument(doc legal.Document) error {
	if !doc.IsFile() {
		if strings.TrimSpace(doc.Text) == "" {
			return ErrEmptyInput
		}
		return nil
	}
	if len(doc.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInput, doc.FileName)
	}
	if len(doc.Data) > MaxUploadBytes {
		return fmt.Errorf("%w: %s", ErrFileTooLarge, doc.FileName)
	}
	if !allowedContentTypes[contentType(doc)] {
		return ErrUnsupportedFile
	}
	return nil
}

// contentType prefers the declared type and falls back to the file extension.
func contentType(doc legal.Document) string {
	ct := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if allowedContentTypes[ct] {
		return ct
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(doc.FileName))]
}

func describeDocument(doc legal.Document, tag string) lifecycle.Input {
	kind := model.InputText
	if doc.IsFile() {
		kind = model.InputFile
	}
	return lifecycle.Input{Payload: doc.Payload(), Kind: kind, Tag: tag}
}

func resolveMode(modes mode.Store, feature, id string) (string, error) {
	m, ok := modes.Resolve(feature, id)
	if !ok {
		return "", fmt.Errorf("%w %q for %s", ErrUnknownMode, id, feature)
	}
	return m.ID, nil
}

func (w *Workspace) chatFeature() lifecycle.Feature[legal.ChatInput, legal.ChatReply, legal.ChatMetrics] {
	return lifecycle.Feature[legal.ChatInput, legal.ChatReply, legal.ChatMetrics]{
		Name: mode.FeatureChat,
		Validate: func(in legal.ChatInput) error {
			if strings.TrimSpace(in.Message) == "" {
				return ErrEmptyInput
			}
			return nil
		},
		Describe: func(in legal.ChatInput) lifecycle.Input {
			return lifecycle.Input{Payload: strings.TrimSpace(in.Message), Kind: model.InputText}
		},
		Invoke: func(ctx context.Context, in legal.ChatInput) (legal.ChatReply, error) {
			in.Message = strings.TrimSpace(in.Message)
			if w.chatModel != nil {
				return w.chatModel.Chat(ctx, in, w.chatTurns())
			}
			return w.api.Chat(ctx, in)
		},
		Metrics: legal.ChatMetricsOf,
		OnFailure: func(legal.ChatInput, error) (legal.ChatReply, bool) {
			return legal.ChatReply{Response: ChatFailureReply}, true
		},
		FailureMessage: ChatFailureReply,
		Replay: func(r model.Record[legal.ChatReply, legal.ChatMetrics]) (legal.ChatInput, bool) {
			msg := strings.TrimSpace(r.InputPayload)
			return legal.ChatInput{Message: msg}, msg != ""
		},
	}
}

// chatTurns returns successful chat exchanges, oldest first.
func (w *Workspace) chatTurns() []ai.Turn {
	records := w.Chat.Store().Records()
	turns := make([]ai.Turn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Failed {
			continue
		}
		turns = append(turns, ai.Turn{Question: records[i].InputPayload, Answer: records[i].Result.Response})
	}
	return turns
}

func (w *Workspace) summaryFeature() lifecycle.Feature[legal.SummaryInput, legal.Summary, legal.SummaryMetrics] {
	return lifecycle.Feature[legal.SummaryInput, legal.Summary, legal.SummaryMetrics]{
		Name: mode.FeatureSummary,
		Validate: func(in legal.SummaryInput) error {
			if err := validateDocument(in.Document); err != nil {
				return err
			}
			_, err := resolveMode(w.modes, mode.FeatureSummary, in.Mode)
			return err
		},
		Describe: func(in legal.SummaryInput) lifecycle.Input {
			tag, _ := resolveMode(w.modes, mode.FeatureSummary, in.Mode)
			return describeDocument(in.Document, tag)
		},
		Invoke: func(ctx context.Context, in legal.SummaryInput) (legal.Summary, error) {
			in.Mode, _ = resolveMode(w.modes, mode.FeatureSummary, in.Mode)
			return w.api.Summarize(ctx, in)
		},
		Metrics:        legal.SummaryMetricsOf,
		FailureMessage: SummaryFailureMessage,
		Replay: func(r model.Record[legal.Summary, legal.SummaryMetrics]) (legal.SummaryInput, bool) {
			if r.InputKind != model.InputText || strings.TrimSpace(r.InputPayload) == "" {
				return legal.SummaryInput{}, false
			}
			return legal.SummaryInput{Document: legal.Document{Text: r.InputPayload}, Mode: r.Tag}, true
		},
	}
}

func (w *Workspace) analysisFeature() lifecycle.Feature[legal.AnalysisInput, legal.Analysis, legal.AnalysisMetrics] {
	return lifecycle.Feature[legal.AnalysisInput, legal.Analysis, legal.AnalysisMetrics]{
		Name: mode.FeatureAnalysis,
		Validate: func(in legal.AnalysisInput) error {
			if err := validateDocument(in.Document); err != nil {
				return err
			}
			_, err := resolveMode(w.modes, mode.FeatureAnalysis, in.Mode)
			return err
		},
		Describe: func(in legal.AnalysisInput) lifecycle.Input {
			tag, _ := resolveMode(w.modes, mode.FeatureAnalysis, in.Mode)
			return describeDocument(in.Document, tag)
		},
		Invoke: func(ctx context.Context, in legal.AnalysisInput) (legal.Analysis, error) {
			in.Mode, _ = resolveMode(w.modes, mode.FeatureAnalysis, in.Mode)
			return w.api.Analyze(ctx, in)
		},
		Metrics:        legal.AnalysisMetricsOf,
		FailureMessage: AnalysisFailureMessage,
		Replay: func(r model.Record[legal.Analysis, legal.AnalysisMetrics]) (legal.AnalysisInput, bool) {
			if r.InputKind != model.InputText || strings.TrimSpace(r.InputPayload) == "" {
				return legal.AnalysisInput{}, false
			}
			return legal.AnalysisInput{Document: legal.Document{Text: r.InputPayload}, Mode: r.Tag}, true
		},
	}
}

func (w *Workspace) citationFeature() lifecycle.Feature[legal.CitationInput, legal.CitationResult, legal.CitationMetrics] {
	return lifecycle.Feature[legal.CitationInput, legal.CitationResult, legal.CitationMetrics]{
		Name: mode.FeatureCitation,
		Validate: func(in legal.CitationInput) error {
			if strings.TrimSpace(in.Text) == "" {
				return ErrEmptyInput
			}
			_, err := resolveMode(w.modes, mode.FeatureCitation, in.Mode)
			return err
		},
		Describe: func(in legal.CitationInput) lifecycle.Input {
			tag, _ := resolveMode(w.modes, mode.FeatureCitation, in.Mode)
			return lifecycle.Input{Payload: strings.TrimSpace(in.Text), Kind: model.InputText, Tag: tag}
		},
		Invoke: func(ctx context.Context, in legal.CitationInput) (legal.CitationResult, error) {
			in.Mode, _ = resolveMode(w.modes, mode.FeatureCitation, in.Mode)
			return w.api.Citations(ctx, in)
		},
		Metrics:        legal.CitationMetricsOf,
		FailureMessage: CitationFailureMessage,
		Replay: func(r model.Record[legal.CitationResult, legal.CitationMetrics]) (legal.CitationInput, bool) {
			text := strings.TrimSpace(r.InputPayload)
			return legal.CitationInput{Text: text, Mode: r.Tag}, text != ""
		},
	}
}
