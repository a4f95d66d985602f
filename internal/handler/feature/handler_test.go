package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

type stubAPI struct {
	fail  error
	score float64
}

func (s *stubAPI) Chat(_ context.Context, in legal.ChatInput) (legal.ChatReply, error) {
	if s.fail != nil {
		return legal.ChatReply{}, s.fail
	}
	return legal.ChatReply{Response: "re: " + in.Message, Confidence: 0.9}, nil
}

func (s *stubAPI) Summarize(_ context.Context, in legal.SummaryInput) (legal.Summary, error) {
	return legal.Summary{Summary: "summary of " + in.Payload(), KeyPoints: []string{"one"}}, s.fail
}

func (s *stubAPI) Analyze(_ context.Context, in legal.AnalysisInput) (legal.Analysis, error) {
	return legal.Analysis{Summary: in.Payload(), RiskAssessment: legal.RiskAssessment{OverallRiskScore: s.score}}, s.fail
}

func (s *stubAPI) Citations(context.Context, legal.CitationInput) (legal.CitationResult, error) {
	return legal.CitationResult{}, s.fail
}

type env struct {
	router  *chi.Mux
	api     *stubAPI
	adapter *storage.MemoryAdapter
	ws      *assistant.Workspace
}

func setupRouter(t *testing.T) *env {
	t.Helper()
	e := &env{api: &stubAPI{}, adapter: storage.NewMemoryAdapter()}
	ws, err := assistant.New(assistant.Options{Adapter: e.adapter, API: e.api, Logger: zerolog.Nop()})
	require.NoError(t, err)
	ws.Initialize(context.Background())
	e.ws = ws

	r := chi.NewRouter()
	r.Route("/chat", func(fr chi.Router) { New(ws.Chat, DecodeChat, zerolog.Nop()).RegisterRoutes(fr) })
	r.Route("/summary", func(fr chi.Router) { New(ws.Summary, DecodeSummary, zerolog.Nop()).RegisterRoutes(fr) })
	r.Route("/analysis", func(fr chi.Router) { New(ws.Analysis, DecodeAnalysis, zerolog.Nop()).RegisterRoutes(fr) })
	e.router = r
	return e
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSubmitChat(t *testing.T) {
	e := setupRouter(t)

	resp := e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "What is a tort?"})
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	record := body["record"].(map[string]any)
	assert.Equal(t, "What is a tort?", record["inputPayload"])
	assert.Nil(t, record["liked"])
	assert.Equal(t, "idle", body["state"].(map[string]any)["phase"])
}

func TestSubmitValidationAndBadBody(t *testing.T) {
	e := setupRouter(t)

	resp := e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/chat/submit", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRemoteFailure(t *testing.T) {
	e := setupRouter(t)
	e.api.fail = errors.New("upstream down")

	resp := e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusBadGateway, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, assistant.ChatFailureReply, body["error"])
	assert.Equal(t, true, body["failed"])
	assert.NotNil(t, body["record"], "chat keeps a failure record")
}

func TestSubmitPersistWarning(t *testing.T) {
	e := setupRouter(t)
	e.adapter.SetFailSaves(true)

	resp := e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, decodeBody(t, resp)["warning"])
}

func TestSummaryFileUpload(t *testing.T) {
	e := setupRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("summary_type", "brief"))
	part, err := mw.CreateFormFile("file", "lease.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("The tenant shall pay rent."))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/summary/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	record := decodeBody(t, resp)["record"].(map[string]any)
	assert.Equal(t, "file", record["inputKind"])
	assert.Equal(t, "lease.txt", record["inputPayload"])
	assert.Equal(t, "brief", record["tag"])
}

func TestHistoryQueryAnnotateRemove(t *testing.T) {
	e := setupRouter(t)

	for _, score := range []float64{2, 9, 5} {
		e.api.score = score
		resp := e.do(http.MethodPost, "/analysis/submit", map[string]string{"text": "contract"})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := e.do(http.MethodGet, "/analysis/history?filter=high-risk", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 3, body["total"])

	resp = e.do(http.MethodGet, "/analysis/history?sort=risk", nil)
	records := decodeBody(t, resp)["records"].([]any)
	require.Len(t, records, 3)
	top := records[0].(map[string]any)
	assert.EqualValues(t, 9, top["derivedMetrics"].(map[string]any)["riskScore"])
	id := top["id"].(string)

	resp = e.do(http.MethodPatch, "/analysis/history/"+id, map[string]any{"liked": true, "bookmarked": true})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = e.do(http.MethodGet, "/analysis/history?filter=liked", nil)
	assert.EqualValues(t, 1, decodeBody(t, resp)["count"])

	resp = e.do(http.MethodPatch, "/analysis/history/"+id, map[string]any{"liked": nil})
	require.Equal(t, http.StatusOK, resp.Code)
	rec, ok := e.ws.Analysis.Store().Get(id)
	require.True(t, ok)
	assert.Equal(t, legal.Analysis{Summary: "contract", RiskAssessment: legal.RiskAssessment{OverallRiskScore: 9}}, rec.Result)
	assert.True(t, rec.Bookmarked)
	assert.Nil(t, rec.Liked.Ptr())

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPatch, "/analysis/history/missing", map[string]any{"liked": true}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, "/analysis/history/"+id, map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/analysis/history?filter=weird", nil).Code)

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/analysis/history/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/analysis/history/"+id, nil).Code)
	assert.Equal(t, 2, e.ws.Analysis.Store().Len())

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/analysis/history", nil).Code)
	assert.Zero(t, e.ws.Analysis.Store().Len())
	assert.False(t, e.adapter.Has(assistant.AnalysisKey))
}

func TestExportAttachment(t *testing.T) {
	e := setupRouter(t)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "hi"}).Code)

	resp := e.do(http.MethodGet, "/chat/history/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Disposition"), assistant.ChatExport)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestDraftAndRegenerate(t *testing.T) {
	e := setupRouter(t)

	resp := e.do(http.MethodPut, "/chat/draft", map[string]string{"draft": "half typed"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "half typed", e.ws.Chat.Draft())

	resp = e.do(http.MethodPost, "/chat/regenerate", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, false, decodeBody(t, resp)["regenerated"])

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/chat/submit", map[string]string{"message": "again?"}).Code)
	assert.Empty(t, e.ws.Chat.Draft())

	resp = e.do(http.MethodPost, "/chat/regenerate", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, e.ws.Chat.Store().Len())

	resp = e.do(http.MethodPost, "/chat/cancel", nil)
	assert.Equal(t, false, decodeBody(t, resp)["canceled"])
}
