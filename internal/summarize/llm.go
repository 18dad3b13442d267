package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

var tracer = otel.Tracer("teamdocs/summarize")

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-haiku-4-5"

	maxOutputTokens = 600

	// maxInputRunes bounds the text sent upstream.
	maxInputRunes = 60_000
)

const systemPrompt = `You summarize documents written by a small team.
Reply with the summary only. Do not add a preamble or a title.`

// LLM summarizes through the Anthropic Messages API and falls back to
// another Summarizer when the call fails.
type LLM struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	fallback   Summarizer
}

// LLMOption configures an LLM summarizer.
type LLMOption func(*LLM)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) LLMOption {
	return func(l *LLM) {
		l.baseURL = url
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(d time.Duration) LLMOption {
	return func(l *LLM) {
		l.httpClient.Timeout = d
	}
}

// WithFallback replaces the TextRank fallback.
func WithFallback(s Summarizer) LLMOption {
	return func(l *LLM) {
		l.fallback = s
	}
}

// NewLLM creates a model-backed summarizer. An empty model selects DefaultModel.
func NewLLM(apiKey, model string, opts ...LLMOption) *LLM {
	if model == "" {
		model = DefaultModel
	}
	l := &LLM{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		fallback: NewTextRank(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *messagesResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// APIError is an error response from the Messages API.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Detail     struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error (status %d, type %s): %s", e.StatusCode, e.Detail.Type, e.Detail.Message)
}

// Summarize asks the model for a summary. Any upstream failure is logged and
// answered by the fallback summarizer instead.
func (l *LLM) Summarize(ctx context.Context, text string, style Style) (string, error) {
	ctx, span := tracer.Start(ctx, "summarize.llm",
		trace.WithAttributes(
			attribute.String("summary.style", string(style)),
			attribute.String("summary.model", l.model),
			attribute.Int("text.length", len(text)),
		))
	defer span.End()

	summary, err := l.complete(ctx, prompt(text, style))
	if err == nil && summary != "" {
		return summary, nil
	}
	if err == nil {
		err = fmt.Errorf("empty completion")
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("summary.fallback", true))
	logger.Ctx(ctx).Warn("LLM summary failed, using fallback", "error", err, "model", l.model)
	return l.fallback.Summarize(ctx, text, style)
}

func prompt(text string, style Style) string {
	runes := []rune(text)
	if len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}

	var instruction string
	switch style {
	case StyleBullets:
		instruction = fmt.Sprintf("Summarize the document as at most %d bullet points, one per line, each starting with \"- \".", style.SentenceCount())
	default:
		instruction = fmt.Sprintf("Summarize the document in at most %d sentences of plain prose.", style.SentenceCount())
	}
	return instruction + "\n\n<document>\n" + text + "\n</document>"
}

func (l *LLM) complete(ctx context.Context, userPrompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     l.model,
		MaxTokens: maxOutputTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", l.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return "", &apiErr
	}

	var out messagesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("llm.input_tokens", out.Usage.InputTokens),
		attribute.Int("llm.output_tokens", out.Usage.OutputTokens),
	)
	return out.text(), nil
}
