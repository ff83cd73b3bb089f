package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/transfer"
	"golang.org/x/time/rate"
)

// Provider error codes exposed to callers and, via failure reasons, to the
// review UI. Messages carry no provider internals.
const (
	ProviderErrInvalidRequest = "invalid_request"
	ProviderErrUnauthorized   = "unauthorized"
	ProviderErrRateLimited    = "rate_limited"
	ProviderErrUnavailable    = "provider_unavailable"
	ProviderErrSafetyBlocked  = "safety_blocked"
	ProviderErrEmptyResponse  = "empty_response"
	ProviderErrTimeout        = "timeout"
)

// ProviderError is the normalized form of every AI provider failure.
// Transient errors are worth a bounded in-call retry.
type ProviderError struct {
	Code      string
	Message   string
	Transient bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai provider: %s: %s", e.Code, e.Message)
}

const (
	htmlGenerationAttempts = 3
	htmlRetryBaseDelay     = 2 * time.Second
	videoPollInterval      = 10 * time.Second
	videoPollDeadline      = 5 * time.Minute
)

type GeminiService interface {
	GenerateText(ctx context.Context, p *transfer.GenerationPrompt) (string, error)
	GenerateImage(ctx context.Context, prompt, model string) ([]byte, string, error)
	GenerateVideo(ctx context.Context, prompt, model string) ([]byte, string, error)
	GenerateHTML(ctx context.Context, p *transfer.GenerationPrompt) (string, error)
}

type geminiService struct {
	cfg     config.AI
	client  *http.Client
	limiter *rate.Limiter
}

func NewGeminiService(cfg config.Config) GeminiService {
	return &geminiService{
		cfg: cfg.AI,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

func (s *geminiService) GenerateText(ctx context.Context, p *transfer.GenerationPrompt) (string, error) {
	reqBody := transfer.GeminiGenerateRequest{
		Contents: []transfer.GeminiContent{{
			Role:  "user",
			Parts: []transfer.GeminiPart{{Text: buildTextPrompt(p)}},
		}},
		GenerationConfig: &transfer.GeminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2048,
		},
	}

	var resp transfer.GeminiGenerateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.cfg.BaseURL, p.Model, s.cfg.APIKey)
	if err := s.post(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", normalizeGeminiError(resp.Error)
	}

	text, err := firstCandidateText(&resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *geminiService) GenerateImage(ctx context.Context, prompt, model string) ([]byte, string, error) {
	if model == "" {
		model = s.cfg.ImageModel
	}

	reqBody := transfer.GeminiImageRequest{
		Instances:  []transfer.GeminiImageInstance{{Prompt: prompt}},
		Parameters: transfer.GeminiImageParams{SampleCount: 1, AspectRatio: "1:1"},
	}

	var resp transfer.GeminiImageResponse
	url := fmt.Sprintf("%s/models/%s:predict?key=%s", s.cfg.BaseURL, model, s.cfg.APIKey)
	if err := s.post(ctx, url, reqBody, &resp); err != nil {
		return nil, "", err
	}
	if resp.Error != nil {
		return nil, "", normalizeGeminiError(resp.Error)
	}
	if len(resp.Predictions) == 0 {
		return nil, "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "image generation returned no predictions"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		slog.Info(err.Error())
		return nil, "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "image payload could not be decoded"}
	}

	mimeType := resp.Predictions[0].MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}

// GenerateVideo starts a long-running operation and polls it until the
// provider reports done or the poll deadline expires.
func (s *geminiService) GenerateVideo(ctx context.Context, prompt, model string) ([]byte, string, error) {
	if model == "" {
		model = s.cfg.VideoModel
	}

	reqBody := transfer.GeminiImageRequest{
		Instances: []transfer.GeminiImageInstance{{Prompt: prompt}},
	}

	var op transfer.GeminiVideoOperation
	startURL := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s", s.cfg.BaseURL, model, s.cfg.APIKey)
	if err := s.post(ctx, startURL, reqBody, &op); err != nil {
		return nil, "", err
	}
	if op.Error != nil {
		return nil, "", normalizeGeminiError(op.Error)
	}
	if op.Name == "" {
		return nil, "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "video generation returned no operation"}
	}

	deadline := time.Now().Add(videoPollDeadline)
	for !op.Done {
		if time.Now().After(deadline) {
			return nil, "", &ProviderError{Code: ProviderErrTimeout, Message: "video generation did not finish in time", Transient: true}
		}
		select {
		case <-ctx.Done():
			return nil, "", &ProviderError{Code: ProviderErrTimeout, Message: "video generation cancelled", Transient: true}
		case <-time.After(videoPollInterval):
		}

		pollURL := fmt.Sprintf("%s/%s?key=%s", s.cfg.BaseURL, op.Name, s.cfg.APIKey)
		if err := s.get(ctx, pollURL, &op); err != nil {
			return nil, "", err
		}
		if op.Error != nil {
			return nil, "", normalizeGeminiError(op.Error)
		}
	}

	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "video generation returned no samples"}
	}

	data, err := s.download(ctx, op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI)
	if err != nil {
		return nil, "", err
	}
	return data, "video/mp4", nil
}

// GenerateHTML asks for a self-contained HTML document and retries
// transient provider failures with exponential backoff before giving up,
// since the sweep itself is not re-entered until its next scheduled run.
func (s *geminiService) GenerateHTML(ctx context.Context, p *transfer.GenerationPrompt) (string, error) {
	reqBody := transfer.GeminiGenerateRequest{
		Contents: []transfer.GeminiContent{{
			Role:  "user",
			Parts: []transfer.GeminiPart{{Text: buildHTMLPrompt(p)}},
		}},
		GenerationConfig: &transfer.GeminiGenerationConfig{
			Temperature:     0.4,
			MaxOutputTokens: 8192,
		},
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.cfg.BaseURL, p.Model, s.cfg.APIKey)

	var lastErr error
	for attempt := 0; attempt < htmlGenerationAttempts; attempt++ {
		if attempt > 0 {
			delay := htmlRetryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", &ProviderError{Code: ProviderErrTimeout, Message: "html generation cancelled", Transient: true}
			case <-time.After(delay):
			}
		}

		var resp transfer.GeminiGenerateResponse
		err := s.post(ctx, url, reqBody, &resp)
		if err == nil && resp.Error != nil {
			err = normalizeGeminiError(resp.Error)
		}
		if err == nil {
			var text string
			text, err = firstCandidateText(&resp)
			if err == nil {
				return stripCodeFence(text), nil
			}
		}

		lastErr = err
		var pErr *ProviderError
		if !errors.As(err, &pErr) || !pErr.Transient {
			return "", err
		}
	}
	return "", lastErr
}

func (s *geminiService) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrInvalidRequest, Message: "request could not be encoded"}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrInvalidRequest, Message: "request could not be created"}
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, out)
}

func (s *geminiService) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrInvalidRequest, Message: "request could not be created"}
	}
	return s.do(req, out)
}

func (s *geminiService) do(req *http.Request, out interface{}) error {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return &ProviderError{Code: ProviderErrTimeout, Message: "generation cancelled", Transient: true}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrUnavailable, Message: "provider is unreachable", Transient: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrUnavailable, Message: "provider response could not be read", Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		return normalizeGeminiStatus(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		slog.Info(err.Error())
		return &ProviderError{Code: ProviderErrEmptyResponse, Message: "provider response could not be parsed"}
	}
	return nil
}

func (s *geminiService) download(ctx context.Context, uri string) ([]byte, error) {
	if strings.Contains(uri, "?") {
		uri += "&key=" + s.cfg.APIKey
	} else {
		uri += "?key=" + s.cfg.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProviderError{Code: ProviderErrInvalidRequest, Message: "media download request could not be created"}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProviderError{Code: ProviderErrUnavailable, Message: "generated media could not be downloaded", Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Code: ProviderErrUnavailable, Message: fmt.Sprintf("media download returned status %d", resp.StatusCode), Transient: resp.StatusCode >= 500}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProviderError{Code: ProviderErrUnavailable, Message: "generated media could not be read", Transient: true}
	}
	return data, nil
}

func firstCandidateText(resp *transfer.GeminiGenerateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "generation returned no candidates"}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "PROHIBITED_CONTENT" {
		return "", &ProviderError{Code: ProviderErrSafetyBlocked, Message: "generation was blocked by the provider's safety filters"}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Code: ProviderErrEmptyResponse, Message: "generation returned empty content"}
	}
	return sb.String(), nil
}

func normalizeGeminiStatus(status int, body []byte) error {
	var wrapper struct {
		Error *transfer.GeminiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != nil {
		return normalizeGeminiError(wrapper.Error)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &ProviderError{Code: ProviderErrRateLimited, Message: "provider rate limit reached", Transient: true}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ProviderError{Code: ProviderErrUnauthorized, Message: "provider rejected the API credentials"}
	case status >= 500:
		return &ProviderError{Code: ProviderErrUnavailable, Message: fmt.Sprintf("provider returned status %d", status), Transient: true}
	default:
		return &ProviderError{Code: ProviderErrInvalidRequest, Message: fmt.Sprintf("provider rejected the request with status %d", status)}
	}
}

func normalizeGeminiError(gerr *transfer.GeminiError) error {
	switch {
	case gerr.Code == http.StatusTooManyRequests || gerr.Status == "RESOURCE_EXHAUSTED":
		return &ProviderError{Code: ProviderErrRateLimited, Message: "provider rate limit reached", Transient: true}
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return &ProviderError{Code: ProviderErrUnauthorized, Message: "provider rejected the API credentials"}
	case gerr.Code >= 500 || gerr.Status == "UNAVAILABLE":
		return &ProviderError{Code: ProviderErrUnavailable, Message: "provider is temporarily unavailable", Transient: true}
	default:
		return &ProviderError{Code: ProviderErrInvalidRequest, Message: "provider rejected the generation request"}
	}
}

func buildTextPrompt(p *transfer.GenerationPrompt) string {
	var sb strings.Builder

	sb.WriteString("Write a LinkedIn post about the following topic.\n\n")
	sb.WriteString("Topic: " + p.Topic + "\n")
	if p.Notes != "" {
		sb.WriteString("Notes: " + p.Notes + "\n")
	}
	if p.SeriesTitle != "" {
		sb.WriteString("This post is part of the series \"" + p.SeriesTitle + "\".\n")
	}
	if p.Continuity != "" {
		sb.WriteString("The previous post in the series said:\n" + p.Continuity + "\nContinue naturally from it without repeating it.\n")
	}
	if p.Persona != "" {
		sb.WriteString("\nVoice and style guidance:\n" + p.Persona + "\n")
	}
	sb.WriteString("\nReturn only the post text, no preamble and no hashtag spam.")

	return sb.String()
}

func buildHTMLPrompt(p *transfer.GenerationPrompt) string {
	var sb strings.Builder

	pageCount := p.PageCount
	if pageCount <= 0 {
		pageCount = 1
	}

	fmt.Fprintf(&sb, "Produce a self-contained HTML document for a %d-page LinkedIn carousel about the topic below. ", pageCount)
	sb.WriteString("Each page is a <section class=\"page\"> element sized 1080x1080.\n\n")
	sb.WriteString("Topic: " + p.Topic + "\n")
	if p.Notes != "" {
		sb.WriteString("Per-page instructions: " + p.Notes + "\n")
	}
	if p.Persona != "" {
		sb.WriteString("Voice and style guidance: " + p.Persona + "\n")
	}
	if p.Continuity != "" {
		sb.WriteString("Previous post in the series:\n" + p.Continuity + "\n")
	}
	if p.TemplateHTML != "" {
		sb.WriteString("\nUse this HTML skeleton, keeping its structure and class names, replacing only the content:\n")
		sb.WriteString(p.TemplateHTML + "\n")
	}
	sb.WriteString("\nReturn raw HTML only, no markdown fences and no commentary.")

	return sb.String()
}

// stripCodeFence removes a markdown code fence when the model wraps the
// HTML in one despite instructions.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```html")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
