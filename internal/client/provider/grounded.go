package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"google.golang.org/genai"
)

const DefaultSearchBaseURL = "https://generativelanguage.googleapis.com/"

// The OpenAI compatible endpoint drops grounding metadata, so searches go
// through the native API. Gemini rejects a response schema combined with
// the search tool; the JSON shape is requested in the instruction instead.
const jsonShape = ` Respond with a single JSON object only, with the keys "title", "description", "summary", "tags" (array of strings), "scores" (object with numeric "clarity", "engagement", "originality", "structure", "overall"), "improvements" (array of strings) and "tips" (object of strings keyed by "thumbnails", "titles", "description", "tags", "content", "formatting").`

func (p *Provider) searchClient(ctx context.Context) (*genai.Client, error) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	if p.search != nil {
		return p.search, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      p.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  p.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.searchBaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	p.search = c
	return c, nil
}

// analyzeGrounded runs a text analysis with Google Search grounding and
// copies the web sources the model cited into the result.
func (p *Provider) analyzeGrounded(ctx context.Context, kind models.Kind, payload Payload, instructions string) (models.AnalysisResult, error) {
	client, err := p.searchClient(ctx)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	prompt := strings.TrimSpace(fmt.Sprintf("Analyze: %s. %s", payload.Text, instructions))
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(kind, instructions)+jsonShape, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	p.log.Debug(ctx, "requesting grounded analysis", "kind", kind, "model", p.model)
	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return models.AnalysisResult{}, ErrEmptyResponse
	}

	result, err := parseResult(text)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	result.Sources = groundingSources(resp)
	return result, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []models.Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	var out []models.Source
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out = append(out, models.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}
