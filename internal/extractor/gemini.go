package extractor

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// generateRequest is the Gemini generateContent request body.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

// generateResponse is the subset of the Gemini response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeminiExtractor invokes the Gemini inference service to turn a raw chat
// message into a TradeSignal. It performs exactly one inference call per
// Extract invocation; retry and rate limiting belong to the orchestrator.
type GeminiExtractor struct {
	client *resty.Client
	cfg    config.GeminiConfig
}

// NewGeminiExtractor creates an extractor backed by the Gemini REST API.
func NewGeminiExtractor(cfg config.GeminiConfig) *GeminiExtractor {
	return &GeminiExtractor{
		client: resty.New().SetTimeout(30 * time.Second),
		cfg:    cfg,
	}
}

// Extract builds the prompt for msg (text or chart variant), calls the
// inference service once, and parses the labeled-field response. The
// returned analysis text is truncated to the configured maximum length.
func (e *GeminiExtractor) Extract(ctx context.Context, msg models.RawMessage) (models.TradeSignal, error) {
	var req generateRequest
	model := e.cfg.Model

	if msg.HasImage() && e.cfg.ChartAnalysis {
		model = e.cfg.VisionModel
		parts := []part{{Text: BuildChartPrompt(msg)}}
		if len(msg.ImageData) > 0 {
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(msg.ImageData),
			}})
		}
		req.Contents = []content{{Parts: parts}}
	} else {
		req.Contents = []content{{Parts: []part{{Text: BuildTextPrompt(msg)}}}}
	}
	req.GenerationConfig = generationConfig{
		MaxOutputTokens: e.cfg.MaxTokens,
		Temperature:     e.cfg.Temperature,
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", e.cfg.Endpoint, model)

	var out generateResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", e.cfg.APIKey).
		SetBody(&req).
		SetResult(&out).
		Post(url)

	if err != nil {
		return models.TradeSignal{}, Transient("request", err)
	}
	if resp.StatusCode() != http.StatusOK {
		// 429 and 5xx are worth retrying; other statuses are left to the
		// orchestrator's bounded retry as well since the message was never
		// successfully processed.
		return models.TradeSignal{}, Transient("status",
			fmt.Errorf("inference service returned status %d: %s", resp.StatusCode(), resp.String()))
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return models.TradeSignal{}, ErrMalformedResponse
	}

	sig, err := ParseResponse(out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return models.TradeSignal{}, err
	}

	if e.cfg.AnalysisMax > 0 && len(sig.Analysis) > e.cfg.AnalysisMax {
		sig.Analysis = sig.Analysis[:e.cfg.AnalysisMax]
	}
	return sig, nil
}
