package feature

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
)

// multipartOverhead 为表单字段预留的额外字节。
const multipartOverhead = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// DecodeChat 解析 {message, context}。
func DecodeChat(r *http.Request) (legal.ChatInput, error) {
	var in legal.ChatInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, errInvalidBody
	}
	return in, nil
}

// DecodeSummary 接受 JSON {text, summaryType} 或 multipart (file, summary_type)。
func DecodeSummary(r *http.Request) (legal.SummaryInput, error) {
	if isMultipart(r) {
		doc, form, err := decodeUpload(r)
		if err != nil {
			return legal.SummaryInput{}, err
		}
		return legal.SummaryInput{Document: doc, Mode: formValue(form, "summary_type", "summaryType")}, nil
	}

	var payload struct {
		Text        string `json:"text"`
		SummaryType string `json:"summaryType"`
		Legacy      string `json:"summary_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return legal.SummaryInput{}, errInvalidBody
	}
	return legal.SummaryInput{
		Document: legal.Document{Text: payload.Text},
		Mode:     firstNonEmpty(payload.SummaryType, payload.Legacy),
	}, nil
}

// DecodeAnalysis 接受 JSON {text, analysisType} 或 multipart (file|text, analysis_type)。
func DecodeAnalysis(r *http.Request) (legal.AnalysisInput, error) {
	if isMultipart(r) {
		doc, form, err := decodeUpload(r)
		if err != nil {
			return legal.AnalysisInput{}, err
		}
		return legal.AnalysisInput{Document: doc, Mode: formValue(form, "analysis_type", "analysisType")}, nil
	}

	var payload struct {
		Text         string `json:"text"`
		AnalysisType string `json:"analysisType"`
		Legacy       string `json:"analysis_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return legal.AnalysisInput{}, errInvalidBody
	}
	return legal.AnalysisInput{
		Document: legal.Document{Text: payload.Text},
		Mode:     firstNonEmpty(payload.AnalysisType, payload.Legacy),
	}, nil
}

// DecodeCitation 解析 {text, searchType}。
func DecodeCitation(r *http.Request) (legal.CitationInput, error) {
	var payload struct {
		Text       string `json:"text"`
		SearchType string `json:"searchType"`
		Legacy     string `json:"search_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return legal.CitationInput{}, errInvalidBody
	}
	return legal.CitationInput{Text: payload.Text, Mode: firstNonEmpty(payload.SearchType, payload.Legacy)}, nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// decodeUpload 读取上传的文件；没有文件时退回到 text 字段。
func decodeUpload(r *http.Request) (legal.Document, map[string][]string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, assistant.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return legal.Document{}, nil, assistant.ErrFileTooLarge
		}
		return legal.Document{}, nil, errInvalidBody
	}
	form := r.MultipartForm.Value

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return legal.Document{Text: formValue(form, "text")}, form, nil
	}
	if err != nil {
		return legal.Document{}, nil, errInvalidBody
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return legal.Document{}, nil, fmt.Errorf("read upload: %w", err)
	}
	return legal.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, form, nil
}

func formValue(form map[string][]string, keys ...string) string {
	for _, k := range keys {
		if vs := form[k]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
