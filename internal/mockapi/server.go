// Package mockapi is a local stand-in for the legal inference API, used for
// frontend development and end-to-end tests.
package mockapi

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/lexdesk/backend/pkg/utils"
)

var legalResponses = []string{
	"Based on my analysis of legal precedents, this matter appears to fall under established contract law principles.",
	"The relevant statutes suggest a clear framework for addressing this issue under current regulations.",
	"This case involves complex jurisdictional considerations that require careful examination of applicable law.",
	"The legal framework indicates several potential approaches to resolving this matter effectively.",
	"Current case law provides substantial guidance for navigating this particular legal situation.",
}

var legalSummaries = []string{
	"This document outlines the fundamental terms and conditions governing the contractual relationship between parties.",
	"The agreement establishes clear obligations and responsibilities for all involved parties.",
	"Key provisions include payment terms, delivery schedules, and dispute resolution mechanisms.",
	"The document incorporates standard legal protections and compliance requirements.",
	"Important clauses address liability limitations and indemnification provisions.",
}

var legalCitations = []string{
	"Smith v. Jones, 123 F.3d 456 (2d Cir. 2020)",
	"Legal Corp. v. Business Inc., 456 U.S. 789 (2019)",
	"Contract Law Review, 78 Harv. L. Rev. 234 (2021)",
	"Commercial Litigation Standards, 45 Yale L.J. 567 (2020)",
	"Federal Regulation Guidelines, 12 C.F.R. § 123.45",
}

var keyPoints = []string{
	"Primary contractual obligations and responsibilities",
	"Payment terms and delivery schedules",
	"Legal compliance and regulatory requirements",
	"Dispute resolution and termination procedures",
}

// citationPattern 粗略匹配 "X v. Y, 123 U.S. 456" 形式的引文。
var citationPattern = regexp.MustCompile(`[A-Z][\w.&' ]+ v\. [A-Z][\w.&' ]+, \d+ [A-Z][\w.]* ?[\w.]* \d+(?: \([^)]*\))?`)

// Options tune the mock.
type Options struct {
	// Latency delays every reply.
	Latency time.Duration
	// Seed makes the canned choices deterministic when non-zero.
	Seed   uint64
	Logger zerolog.Logger
}

type server struct {
	opts Options
	rnd  *rand.Rand
}

// NewRouter returns the mock API.
func NewRouter(opts Options) http.Handler {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &server{opts: opts, rnd: rand.New(rand.NewPCG(seed, seed>>1))}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.delay)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Legal AI Backend is running!", "status": "success"})
	})
	r.Get("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "backend": "operational"})
	})
	r.Post("/chat/", s.handleChat)
	r.Post("/api/v1/chat/", s.handleChat)
	r.Post("/api/v1/documents/summarize", s.handleSummarizeText)
	r.Post("/summarize/", s.handleSummarizeFile)
	r.Post("/analyze/", s.handleAnalyze)
	r.Post("/citation/lookup/", s.handleCitationLookup)
	r.Post("/citation/batch/", s.handleCitationBatch)
	return r
}

func (s *server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-r.Context().Done():
				return
			}
		}
		s.opts.Logger.Debug().Str("path", r.URL.Path).Msg("mock request")
		next.ServeHTTP(w, r)
	})
}

func (s *server) pick(items []string) string { return items[s.rnd.IntN(len(items))] }

func (s *server) between(lo, hi float64) float64 {
	v := lo + s.rnd.Float64()*(hi-lo)
	return float64(int(v*100)) / 100
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":   s.pick(legalResponses),
		"confidence": s.between(0.85, 0.98),
		"sources": []map[string]any{
			{"title": "Legal Database Entry", "relevance": 0.92},
			{"title": "Case Law Reference", "relevance": 0.88},
		},
	})
}

func (s *server) handleSummarizeText(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "text is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"summary":             s.pick(legalSummaries),
		"key_points":          keyPoints[:2+s.rnd.IntN(len(keyPoints)-1)],
		"word_count_original": len(strings.Fields(payload.Text)),
	})
}

func (s *server) handleSummarizeFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"summary":         s.pick(legalSummaries),
		"key_points":      keyPoints,
		"filename":        header.Filename,
		"processed_pages": 1 + s.rnd.IntN(25),
	})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, "file or text is required")
		return
	}
	if _, _, err := r.FormFile("file"); err != nil && strings.TrimSpace(r.FormValue("text")) == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "file or text is required")
		return
	}

	score := s.between(1, 9.5)
	factors := []string{"Broad indemnification obligations", "Unilateral termination right"}
	if r.FormValue("analysis_type") == "risk-focused" {
		factors = append(factors, "Uncapped liability for consequential damages")
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"summary": "This document demonstrates standard commercial terms with appropriate legal protections and comprehensive risk management provisions.",
		"risk_assessment": map[string]any{
			"overall_risk_score": score,
			"risk_factors":       factors,
		},
		"key_clauses": []string{
			"Standard liability clauses present and well-structured",
			"Clear payment terms and delivery schedules defined",
			"Appropriate termination and dispute resolution provisions",
		},
		"recommendations": []string{
			"Consider additional indemnification language for enhanced protection",
			"Review force majeure provisions for current circumstances",
			"Clarify intellectual property rights and ownership terms",
		},
	})
}

func (s *server) handleCitationLookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := decodeText(w, r); !ok {
		return
	}
	first := s.rnd.IntN(len(legalCitations))
	second := (first + 1 + s.rnd.IntN(len(legalCitations)-1)) % len(legalCitations)
	valid := true
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"citations": []any{
			map[string]any{"citation": legalCitations[first], "valid": valid},
			legalCitations[second],
		},
	})
}

func (s *server) handleCitationBatch(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	found := citationPattern.FindAllString(text, -1)
	citations := make([]map[string]any, 0, len(found))
	for _, c := range found {
		citations = append(citations, map[string]any{"citation": strings.TrimSpace(c), "valid": true})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"citations": citations})
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "text is required")
		return "", false
	}
	return payload.Text, true
}
