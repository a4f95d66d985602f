package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
)

// Chat fallbacks used when the API omits fields.
const (
	EmptyChatReply    = "I'm sorry, I couldn't process your request at the moment."
	DefaultConfidence = 0.95
)

type chatResponse struct {
	Response   string            `json:"response"`
	Confidence *float64          `json:"confidence"`
	Sources    []json.RawMessage `json:"sources"`
}

// Chat sends a chat message.
func (c *Client) Chat(ctx context.Context, in legal.ChatInput) (legal.ChatReply, error) {
	body, err := c.do(ctx, "chat", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"message": in.Message, "context": in.Context}).
			Post("/chat/")
	})
	if err != nil {
		return legal.ChatReply{}, err
	}

	var resp chatResponse
	if err := decode("chat", body, &resp); err != nil {
		return legal.ChatReply{}, err
	}

	reply := legal.ChatReply{Response: resp.Response, Confidence: DefaultConfidence}
	if strings.TrimSpace(reply.Response) == "" {
		reply.Response = EmptyChatReply
	}
	if resp.Confidence != nil {
		reply.Confidence = *resp.Confidence
	}
	for _, raw := range resp.Sources {
		if s := sourceTitle(raw); s != "" {
			reply.Sources = append(reply.Sources, s)
		}
	}
	return reply, nil
}

// sourceTitle accepts a bare string or an object carrying a title.
func sourceTitle(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Title != "" {
			return obj.Title
		}
		return obj.Name
	}
	return ""
}

type summaryResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// Summarize summarizes pasted text or an uploaded file.
func (c *Client) Summarize(ctx context.Context, in legal.SummaryInput) (legal.Summary, error) {
	body, err := c.do(ctx, "summarize", func(r *resty.Request) (*resty.Response, error) {
		if in.IsFile() {
			return r.SetFileReader("file", in.FileName, bytes.NewReader(in.Data)).
				SetFormData(map[string]string{"summary_type": in.Mode}).
				Post("/summarize/")
		}
		return r.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"text": in.Text, "summary_type": in.Mode}).
			Post("/api/v1/documents/summarize")
	})
	if err != nil {
		return legal.Summary{}, err
	}

	var resp summaryResponse
	if err := decode("summarize", body, &resp); err != nil {
		return legal.Summary{}, err
	}
	return legal.Summary{Summary: resp.Summary, KeyPoints: resp.KeyPoints}, nil
}

type analysisResponse struct {
	Summary        string `json:"summary"`
	Analysis       string `json:"analysis"`
	RiskAssessment *struct {
		OverallRiskScore float64  `json:"overall_risk_score"`
		RiskFactors      []string `json:"risk_factors"`
	} `json:"risk_assessment"`
	RiskLevel       string   `json:"risk_level"`
	KeyClauses      []string `json:"key_clauses"`
	KeyIssues       []string `json:"key_issues"`
	Recommendations []string `json:"recommendations"`
}

// Analyze runs a contract analysis.
func (c *Client) Analyze(ctx context.Context, in legal.AnalysisInput) (legal.Analysis, error) {
	body, err := c.do(ctx, "analyze", func(r *resty.Request) (*resty.Response, error) {
		form := map[string]string{"analysis_type": in.Mode}
		if in.IsFile() {
			r.SetFileReader("file", in.FileName, bytes.NewReader(in.Data))
		} else {
			form["text"] = in.Text
		}
		return r.SetFormData(form).Post("/analyze/")
	})
	if err != nil {
		return legal.Analysis{}, err
	}

	var resp analysisResponse
	if err := decode("analyze", body, &resp); err != nil {
		return legal.Analysis{}, err
	}

	out := legal.Analysis{
		Summary:         firstNonEmpty(resp.Summary, resp.Analysis),
		KeyClauses:      resp.KeyClauses,
		Recommendations: resp.Recommendations,
	}
	if out.KeyClauses == nil {
		out.KeyClauses = resp.KeyIssues
	}
	if resp.RiskAssessment != nil {
		out.RiskAssessment = legal.RiskAssessment{
			OverallRiskScore: clampScore(resp.RiskAssessment.OverallRiskScore),
			RiskFactors:      resp.RiskAssessment.RiskFactors,
		}
	} else {
		out.RiskAssessment.OverallRiskScore = scoreForLevel(resp.RiskLevel)
	}
	return out, nil
}

// scoreForLevel maps the coarse risk level of older API versions onto the 0-10 scale.
func scoreForLevel(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "high":
		return 8
	case "medium":
		return 5
	case "low":
		return 2
	default:
		return 0
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(10, v))
}

type citationResponse struct {
	Citations []legal.Citation `json:"citations"`
}

// Citations looks up citations. The batch mode extracts every citation in the text.
func (c *Client) Citations(ctx context.Context, in legal.CitationInput) (legal.CitationResult, error) {
	path := "/citation/lookup/"
	if in.Mode == "batch" {
		path = "/citation/batch/"
	}
	body, err := c.do(ctx, "citation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"text": in.Text}).
			Post(path)
	})
	if err != nil {
		return legal.CitationResult{}, err
	}

	var resp citationResponse
	if err := decode("citation", body, &resp); err != nil {
		return legal.CitationResult{}, err
	}
	if resp.Citations == nil {
		resp.Citations = []legal.Citation{}
	}
	return legal.CitationResult{Citations: resp.Citations}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

