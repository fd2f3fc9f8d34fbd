package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
)

const tutorContext = `You are a senior professor of chemical engineering principles.
Your specialty: unit operations — fluid flow, fluid transport machinery, heat transfer,
distillation, absorption, extraction and drying.
Always address the user as "student", in a warm and professional tone.`

const summarizerInstruction = tutorContext + `
Your task is to help the student organize study material.
- Always render formulas in LaTeX: inline $...$, block $$...$$.
- Summaries must be clearly structured, highlighting core calculations such as the
  Bernoulli equation, heat transfer rates and reflux ratios.`

const solverInstruction = tutorContext + `
Your task is to provide a detailed worked solution.
Required structure:
1. Problem type analysis: state the concepts being tested.
2. Key equations: list the relevant formulas.
3. Detailed derivation: show the full working, minding unit conversions.`

// defaultSolveQuestion is substituted when the student sends a problem image
// with no accompanying text, so a request is never sent with zero content.
const defaultSolveQuestion = "Analyze this chemical engineering problem and give a detailed solution."

// GeminiService translates local requests into Gemini generateContent calls.
// It owns no session state.
type GeminiService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retryable  map[string]bool
}

func NewGeminiService(cfg *config.Config) *GeminiService {
	retryable := make(map[string]bool, len(cfg.RetryableStatuses))
	for _, s := range cfg.RetryableStatuses {
		retryable[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return &GeminiService{
		apiKey:     cfg.GeminiKey,
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		retryable:  retryable,
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	Temperature    float64         `json:"temperature"`
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []contentPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Converse sends one conversational turn. The new user content carries
// [inlineData, text] when file is present (first turn of a session with a
// document), [text] otherwise. Prior turns come from history in order.
// The session is not mutated; the caller appends the reply.
func (s *GeminiService) Converse(ctx context.Context, session *domain.StudySession, history []domain.SessionMessage, text string, file *domain.TransferFile) (string, domain.TokenUsage, error) {
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []contentPart{{Text: m.Body}}})
	}
	contents = append(contents, userContent(file, text))

	req := generateRequest{
		SystemInstruction: &content{Parts: []contentPart{{Text: summarizerInstruction}}},
		Contents:          contents,
		GenerationConfig: generationConfig{
			Temperature:    session.Temperature,
			ThinkingConfig: &thinkingConfig{ThinkingBudget: config.SummarizerThinkingBudget},
		},
	}
	return s.generate(ctx, session.Model, req)
}

// Solve is the stateless one-shot variant with the solver instruction.
func (s *GeminiService) Solve(ctx context.Context, model string, file *domain.TransferFile, question string) (string, domain.TokenUsage, error) {
	if strings.TrimSpace(question) == "" {
		question = defaultSolveQuestion
	}

	req := generateRequest{
		SystemInstruction: &content{Parts: []contentPart{{Text: solverInstruction}}},
		Contents:          []content{userContent(file, question)},
		GenerationConfig: generationConfig{
			Temperature:    config.SolverTemperature,
			ThinkingConfig: &thinkingConfig{ThinkingBudget: config.SolverThinkingBudget},
		},
	}
	return s.generate(ctx, model, req)
}

func userContent(file *domain.TransferFile, text string) content {
	var parts []contentPart
	if file != nil {
		parts = append(parts, contentPart{InlineData: &inlineData{
			MimeType: file.MimeType,
			Data:     file.Base64(),
		}})
	}
	parts = append(parts, contentPart{Text: text})
	return content{Role: "user", Parts: parts}
}

// generate issues the request, retrying exactly once without the thinking
// budget when the API rejects it with a configured retryable status.
func (s *GeminiService) generate(ctx context.Context, model string, req generateRequest) (string, domain.TokenUsage, error) {
	if err := s.checkCredential(); err != nil {
		return "", domain.TokenUsage{}, err
	}

	reply, usage, err := s.doRequest(ctx, model, req)
	if err == nil || req.GenerationConfig.ThinkingConfig == nil {
		return reply, usage, err
	}

	gwErr, ok := AsGatewayError(err)
	if !ok || !s.retryable[gwErr.Status] {
		return "", domain.TokenUsage{}, err
	}

	slog.Warn("thinking budget rejected, retrying without it",
		"model", model, "status", gwErr.Status)
	req.GenerationConfig.ThinkingConfig = nil
	return s.doRequest(ctx, model, req)
}

func (s *GeminiService) checkCredential() error {
	key := strings.TrimSpace(s.apiKey)
	if key == "" {
		return &GatewayError{Kind: KindAuth, Message: "API key is not configured"}
	}
	// An sk- prefix is another provider's key format; reject before any
	// network call.
	if strings.HasPrefix(key, "sk-") {
		return &GatewayError{Kind: KindAuth, Message: "API key has the wrong provider format"}
	}
	return nil
}

func (s *GeminiService) doRequest(ctx context.Context, model string, genReq generateRequest) (string, domain.TokenUsage, error) {
	payload, err := json.Marshal(genReq)
	if err != nil {
		return "", domain.TokenUsage{}, &GatewayError{Kind: KindTransport, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", domain.TokenUsage{}, &GatewayError{Kind: KindTransport, Message: fmt.Sprintf("create request: %v", err)}
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.TokenUsage{}, &GatewayError{Kind: KindTransport, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TokenUsage{}, &GatewayError{Kind: KindTransport, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		gwErr := classifyAPIError(resp.StatusCode, body)
		slog.Error("gemini request failed",
			"request_id", requestID, "model", model,
			"http_status", resp.StatusCode, "status", gwErr.Status, "kind", gwErr.Kind)
		return "", domain.TokenUsage{}, gwErr
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", domain.TokenUsage{}, &GatewayError{Kind: KindTransport, Message: fmt.Sprintf("parse response: %v", err)}
	}

	usage := domain.TokenUsage{
		PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
		CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
	}

	reply := replyText(genResp)
	if reply == "" {
		return "", usage, &GatewayError{Kind: KindTransport, Message: "empty response from model"}
	}

	slog.Debug("gemini request completed",
		"request_id", requestID, "model", model,
		"prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)
	return reply, usage, nil
}

// replyText extracts exactly one reply: the concatenated text parts of the
// first candidate.
func replyText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func classifyAPIError(httpStatus int, body []byte) *GatewayError {
	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)

	status := apiErr.Error.Status
	message := apiErr.Error.Message
	if message == "" {
		message = fmt.Sprintf("HTTP %d", httpStatus)
	}

	kind := KindTransport
	switch {
	case httpStatus == http.StatusUnauthorized || status == "UNAUTHENTICATED":
		kind = KindAuth
	case httpStatus == http.StatusNotFound || status == "NOT_FOUND":
		kind = KindModelUnavailable
	case httpStatus == http.StatusForbidden || status == "PERMISSION_DENIED":
		kind = KindModelUnavailable
	}

	return &GatewayError{Kind: kind, Status: status, Message: message}
}
