package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/service/inference"
)

func newClient(t *testing.T) *inference.Client {
	t.Helper()
	srv := httptest.NewServer(NewRouter(Options{Seed: 42, Logger: zerolog.Nop()}))
	t.Cleanup(srv.Close)
	return inference.New(inference.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
}

func TestClientAgainstMock(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	reply, err := client.Chat(ctx, legal.ChatInput{Message: "What is promissory estoppel?"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Response)
	assert.Equal(t, []string{"Legal Database Entry", "Case Law Reference"}, reply.Sources)

	summary, err := client.Summarize(ctx, legal.SummaryInput{Document: legal.Document{Text: "The tenant shall pay rent monthly."}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(summary.KeyPoints), 2)

	analysis, err := client.Analyze(ctx, legal.AnalysisInput{
		Document: legal.Document{FileName: "nda.pdf", Data: []byte("%PDF-1.4")},
		Mode:     "risk-focused",
	})
	require.NoError(t, err)
	assert.Len(t, analysis.RiskAssessment.RiskFactors, 3)
	assert.Greater(t, analysis.RiskAssessment.OverallRiskScore, 0.0)

	lookup, err := client.Citations(ctx, legal.CitationInput{Text: "contract formation", Mode: "lookup"})
	require.NoError(t, err)
	assert.Len(t, lookup.Citations, 2)
}

func TestBatchExtractsCitations(t *testing.T) {
	client := newClient(t)

	res, err := client.Citations(context.Background(), legal.CitationInput{
		Text: "As held in Marbury v. Madison, 5 U.S. 137 (1803) and later in Brown v. Board, 347 U.S. 483 (1954).",
		Mode: "batch",
	})
	require.NoError(t, err)
	require.Len(t, res.Citations, 2)
	assert.Contains(t, res.Citations[0].Citation, "Marbury v. Madison")
}

func TestMockRejectsEmptyInput(t *testing.T) {
	client := newClient(t)
	_, err := client.Chat(context.Background(), legal.ChatInput{Message: ""})
	var remote *inference.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 422, remote.Status)
}
