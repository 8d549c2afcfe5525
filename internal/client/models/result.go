package models

import (
	"encoding/json"
	"fmt"
)

// Scores are 0–100 quality ratings.
type Scores struct {
	Clarity     float64 `json:"clarity"`
	Engagement  float64 `json:"engagement"`
	Originality float64 `json:"originality"`
	Structure   float64 `json:"structure"`
	Overall     float64 `json:"overall"`
}

type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// AnalysisResult is the provider's report. The client never interprets it
// beyond display; fields it does not know about are kept in Extra and written
// back unchanged so newer provider output survives a round trip.
type AnalysisResult struct {
	Summary           string            `json:"summary"`
	Title             string            `json:"title,omitempty"`
	Description       string            `json:"description,omitempty"`
	ThumbnailURL      string            `json:"thumbnailUrl,omitempty"`
	GeneratedImageURL string            `json:"generatedImageUrl,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	Scores            Scores            `json:"scores"`
	Improvements      []string          `json:"improvements"`
	Tips              map[string]string `json:"tips"`
	Sources           []Source          `json:"sources,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type analysisResultFields AnalysisResult

var knownResultKeys = map[string]struct{}{
	"summary": {}, "title": {}, "description": {}, "thumbnailUrl": {},
	"generatedImageUrl": {}, "tags": {}, "scores": {}, "improvements": {},
	"tips": {}, "sources": {},
}

func (r *AnalysisResult) UnmarshalJSON(b []byte) error {
	var fields analysisResultFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for k := range knownResultKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		fields.Extra = all
	} else {
		fields.Extra = nil
	}

	*r = AnalysisResult(fields)
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	fields := analysisResultFields(r)
	if fields.Improvements == nil {
		fields.Improvements = []string{}
	}
	if fields.Tips == nil {
		fields.Tips = map[string]string{}
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return b, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := knownResultKeys[k]; known {
			continue
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("extra field %q is not valid JSON", k)
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}
