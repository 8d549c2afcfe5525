package provider

import (
	"fmt"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/sashabaranov/go-openai/jsonschema"
)

func systemInstruction(kind models.Kind, instructions string) string {
	switch kind {
	case models.KindYouTube:
		return "You are a world-class YouTube strategist and SEO expert. Extract title, description, and tags. Provide quality scores (0-100), summary, and actionable advice."
	case models.KindResume:
		return "Score this resume against industry standards and ATS compatibility."
	case models.KindPDFRefine:
		return fmt.Sprintf("You are an expert editor. Rewrite or modify the provided document content based on these instructions: %q. Return the full modified text in the 'summary' field.", instructions)
	default:
		return "Summarize the provided document and score its structural and logical integrity."
	}
}

var stringType = jsonschema.Definition{Type: jsonschema.String}

var resultSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"title":       stringType,
		"description": stringType,
		"summary":     stringType,
		"tags":        {Type: jsonschema.Array, Items: &stringType},
		"scores": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"clarity":     {Type: jsonschema.Number},
				"engagement":  {Type: jsonschema.Number},
				"originality": {Type: jsonschema.Number},
				"structure":   {Type: jsonschema.Number},
				"overall":     {Type: jsonschema.Number},
			},
			Required: []string{"clarity", "engagement", "originality", "structure", "overall"},
		},
		"improvements": {Type: jsonschema.Array, Items: &stringType},
		"tips": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"thumbnails":  stringType,
				"titles":      stringType,
				"description": stringType,
				"tags":        stringType,
				"content":     stringType,
				"formatting":  stringType,
			},
		},
	},
	Required: []string{"summary", "scores", "improvements", "tips"},
}
