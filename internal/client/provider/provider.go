// Package provider talks to the generative model behind the analyses. It
// speaks the OpenAI chat and image APIs, which Gemini also serves through
// its compatibility endpoint. YouTube analyses that need Google Search
// grounding use the native Gemini API instead.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/logging"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel      = "gemini-2.5-flash"
	DefaultImageModel = "imagen-3.0-generate-002"
)

var (
	ErrMalformedResponse = errors.New("malformed analysis response")
	ErrEmptyResponse     = errors.New("empty analysis response")
)

// Payload is what gets analysed: either Text, or a base64 encoded file with
// its media type.
type Payload struct {
	Text      string
	Data      string
	MediaType string
}

func (p Payload) IsFile() bool {
	return p.Data != ""
}

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	ImageModel string
	HTTPClient *http.Client

	// SearchGrounding routes YouTube analyses through the native Gemini
	// API at SearchBaseURL with the Google Search tool enabled.
	SearchGrounding bool
	SearchBaseURL   string
}

type Provider struct {
	client     *openai.Client
	model      string
	imageModel string
	log        logging.Logger

	apiKey          string
	httpClient      *http.Client
	searchGrounding bool
	searchBaseURL   string

	searchMu sync.Mutex
	search   *genai.Client
}

func New(opts Options, log logging.Logger) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.SearchBaseURL == "" {
		opts.SearchBaseURL = DefaultSearchBaseURL
	}
	if log == nil {
		log = logging.Nop()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &Provider{
		client:          openai.NewClientWithConfig(cfg),
		model:           opts.Model,
		imageModel:      opts.ImageModel,
		log:             log.With("component", "provider"),
		apiKey:          opts.APIKey,
		httpClient:      opts.HTTPClient,
		searchGrounding: opts.SearchGrounding,
		searchBaseURL:   opts.SearchBaseURL,
	}
}

// Analyze produces a report for payload. Image generation returns a fixed
// report carrying the generated picture.
func (p *Provider) Analyze(ctx context.Context, kind models.Kind, payload Payload, instructions string) (models.AnalysisResult, error) {
	if kind == models.KindImageGen {
		return p.generateImage(ctx, payload.Text)
	}
	if kind == models.KindYouTube && !payload.IsFile() && p.searchGrounding {
		result, err := p.analyzeGrounded(ctx, kind, payload, instructions)
		if err != nil {
			return models.AnalysisResult{}, err
		}
		return withThumbnail(result, payload), nil
	}

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction(kind, instructions)},
			userMessage(payload, instructions),
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "analysis_result",
				Schema: resultSchema,
			},
		},
	}

	p.log.Debug(ctx, "requesting analysis", "kind", kind, "model", p.model, "file", payload.IsFile())
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return models.AnalysisResult{}, ErrEmptyResponse
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	if kind == models.KindYouTube && !payload.IsFile() {
		result = withThumbnail(result, payload)
	}
	return result, nil
}

func withThumbnail(result models.AnalysisResult, payload Payload) models.AnalysisResult {
	if id, ok := ExtractYouTubeID(payload.Text); ok {
		result.ThumbnailURL = YouTubeThumbnailURL(id)
	}
	return result
}

func userMessage(payload Payload, instructions string) openai.ChatCompletionMessage {
	if !payload.IsFile() {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: strings.TrimSpace(fmt.Sprintf("Analyze: %s. %s", payload.Text, instructions)),
		}
	}

	text := instructions
	if text == "" {
		text = "Analyze this content."
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: "data:" + payload.MediaType + ";base64," + payload.Data},
			},
			{Type: openai.ChatMessagePartTypeText, Text: text},
		},
	}
}

// parseResult accepts a bare JSON object, optionally wrapped in a markdown
// code fence.
func parseResult(content string) (models.AnalysisResult, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if !strings.HasPrefix(s, "{") {
		return models.AnalysisResult{}, fmt.Errorf("%w: not a JSON object", ErrMalformedResponse)
	}

	var r models.AnalysisResult
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if r.Summary == "" {
		return models.AnalysisResult{}, fmt.Errorf("%w: missing summary", ErrMalformedResponse)
	}
	return r, nil
}

func (p *Provider) generateImage(ctx context.Context, prompt string) (models.AnalysisResult, error) {
	p.log.Debug(ctx, "requesting image", "model", p.imageModel)
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return models.AnalysisResult{}, ErrEmptyResponse
	}

	return models.AnalysisResult{
		Summary:           "Image generation successful based on neural prompt.",
		GeneratedImageURL: "data:image/png;base64," + resp.Data[0].B64JSON,
		Scores:            models.Scores{Clarity: 100, Engagement: 100, Originality: 100, Structure: 100, Overall: 100},
		Improvements:      []string{},
		Tips:              map[string]string{"content": "Refine prompts with lighting and style keywords for better results."},
	}, nil
}
