package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/service/ai"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

type fakeAPI struct {
	fail     error
	lastMode string
}

func (f *fakeAPI) Chat(_ context.Context, in legal.ChatInput) (legal.ChatReply, error) {
	if f.fail != nil {
		return legal.ChatReply{}, f.fail
	}
	return legal.ChatReply{Response: "re: " + in.Message, Confidence: 0.9}, nil
}

func (f *fakeAPI) Summarize(_ context.Context, in legal.SummaryInput) (legal.Summary, error) {
	if f.fail != nil {
		return legal.Summary{}, f.fail
	}
	f.lastMode = in.Mode
	return legal.Summary{Summary: "short", KeyPoints: []string{"a", "b"}}, nil
}

func (f *fakeAPI) Analyze(_ context.Context, in legal.AnalysisInput) (legal.Analysis, error) {
	if f.fail != nil {
		return legal.Analysis{}, f.fail
	}
	f.lastMode = in.Mode
	return legal.Analysis{Summary: "risky", RiskAssessment: legal.RiskAssessment{OverallRiskScore: 7}}, nil
}

func (f *fakeAPI) Citations(_ context.Context, in legal.CitationInput) (legal.CitationResult, error) {
	if f.fail != nil {
		return legal.CitationResult{}, f.fail
	}
	f.lastMode = in.Mode
	return legal.CitationResult{Citations: []legal.Citation{{Citation: "5 U.S. 137"}}}, nil
}

type fakeChatModel struct{ turns []ai.Turn }

func (f *fakeChatModel) Chat(_ context.Context, in legal.ChatInput, history []ai.Turn) (legal.ChatReply, error) {
	f.turns = history
	return legal.ChatReply{Response: "model says " + in.Message}, nil
}

func newWorkspace(t *testing.T, api LegalAPI, adapter storage.Adapter) *Workspace {
	t.Helper()
	w, err := New(Options{Adapter: adapter, API: api, Logger: zerolog.Nop()})
	require.NoError(t, err)
	w.Initialize(context.Background())
	return w
}

func TestFeaturesUseDistinctKeys(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	w := newWorkspace(t, &fakeAPI{}, adapter)
	ctx := context.Background()

	_, err := w.Chat.Submit(ctx, legal.ChatInput{Message: "hello"})
	require.NoError(t, err)
	_, err = w.Summary.Submit(ctx, legal.SummaryInput{Document: legal.Document{Text: "doc"}})
	require.NoError(t, err)
	_, err = w.Analysis.Submit(ctx, legal.AnalysisInput{Document: legal.Document{Text: "contract"}, Mode: "risk-focused"})
	require.NoError(t, err)
	_, err = w.Citation.Submit(ctx, legal.CitationInput{Text: "Marbury"})
	require.NoError(t, err)

	for _, key := range []string{ChatKey, SummaryKey, AnalysisKey, CitationKey} {
		assert.True(t, adapter.Has(key), key)
	}

	rec := w.Analysis.Store().Records()[0]
	assert.Equal(t, "risk-focused", rec.Tag)
	assert.Equal(t, 7.0, rec.Metrics.RiskScore)

	rec2 := w.Summary.Store().Records()[0]
	assert.Equal(t, "comprehensive", rec2.Tag, "empty mode resolves to the default")
}

func TestChatFailureRecordsPlaceholderOthersDoNot(t *testing.T) {
	api := &fakeAPI{fail: errors.New("503")}
	w := newWorkspace(t, api, storage.NewMemoryAdapter())
	ctx := context.Background()

	out, err := w.Chat.Submit(ctx, legal.ChatInput{Message: "hello"})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	require.NotNil(t, out.Record)
	assert.Equal(t, ChatFailureReply, out.Record.Result.Response)

	sum, err := w.Summary.Submit(ctx, legal.SummaryInput{Document: legal.Document{Text: "doc"}})
	require.NoError(t, err)
	assert.True(t, sum.Failed)
	assert.Equal(t, SummaryFailureMessage, sum.Message)
	assert.Zero(t, w.Summary.Store().Len())

	_, err = w.Analysis.Submit(ctx, legal.AnalysisInput{Document: legal.Document{Text: "x"}})
	require.NoError(t, err)
	assert.Zero(t, w.Analysis.Store().Len())

	_, err = w.Citation.Submit(ctx, legal.CitationInput{Text: "x"})
	require.NoError(t, err)
	assert.Zero(t, w.Citation.Store().Len())
}

func TestDocumentValidation(t *testing.T) {
	w := newWorkspace(t, &fakeAPI{}, storage.NewMemoryAdapter())
	ctx := context.Background()

	_, err := w.Summary.Submit(ctx, legal.SummaryInput{Document: legal.Document{FileName: "photo.png", ContentType: "image/png", Data: []byte{1}}})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = w.Analysis.Submit(ctx, legal.AnalysisInput{Document: legal.Document{Text: "x"}, Mode: "poetry"})
	assert.ErrorIs(t, err, ErrUnknownMode)

	out, err := w.Analysis.Submit(ctx, legal.AnalysisInput{Document: legal.Document{FileName: "lease.docx", ContentType: "application/octet-stream", Data: []byte("PK")}})
	require.NoError(t, err)
	assert.Equal(t, model.InputFile, out.Record.InputKind)
	assert.Equal(t, "lease.docx", out.Record.InputPayload)
}

func TestRegenerateSkipsFileRecords(t *testing.T) {
	api := &fakeAPI{}
	w := newWorkspace(t, api, storage.NewMemoryAdapter())
	ctx := context.Background()

	_, err := w.Summary.Submit(ctx, legal.SummaryInput{Document: legal.Document{Text: "first text"}, Mode: "brief"})
	require.NoError(t, err)
	_, err = w.Summary.Submit(ctx, legal.SummaryInput{Document: legal.Document{FileName: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}})
	require.NoError(t, err)

	out, ok, err := w.Summary.Regenerate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first text", out.Record.InputPayload)
	assert.Equal(t, "brief", api.lastMode)
}

func TestChatModelGetsPriorTurnsOldestFirst(t *testing.T) {
	fm := &fakeChatModel{}
	w, err := New(Options{Adapter: storage.NewMemoryAdapter(), API: &fakeAPI{}, ChatModel: fm, Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = w.Chat.Submit(ctx, legal.ChatInput{Message: "one"})
	require.NoError(t, err)
	out, err := w.Chat.Submit(ctx, legal.ChatInput{Message: "two"})
	require.NoError(t, err)

	assert.Equal(t, "model says two", out.Result.Response)
	require.Len(t, fm.turns, 1)
	assert.Equal(t, "one", fm.turns[0].Question)
}

func TestHistorySurvivesRestart(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	ctx := context.Background()

	w := newWorkspace(t, &fakeAPI{}, adapter)
	_, err := w.Citation.Submit(ctx, legal.CitationInput{Text: "Marbury", Mode: "batch"})
	require.NoError(t, err)
	before := w.Citation.Store().Records()

	restarted := newWorkspace(t, &fakeAPI{}, adapter)
	after := restarted.Citation.Store().Records()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.True(t, before[0].CreatedAt.Equal(after[0].CreatedAt))
	assert.Equal(t, "batch", after[0].Tag)

	_, data, err := restarted.Citation.Store().Export()
	require.NoError(t, err)
	var exported []map[string]any
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Len(t, exported, 1)
}
