// Package models defines the records the client keeps locally and mirrors to
// the remote archive: users, history items and analysis results.
package models

import (
	"errors"
	"strings"
)

// Kind classifies what was analysed.
type Kind string

const (
	KindYouTube   Kind = "youtube"
	KindPDF       Kind = "pdf"
	KindResume    Kind = "resume"
	KindImageGen  Kind = "image_gen"
	KindPDFRefine Kind = "pdf_refine"
)

var ErrUnknownKind = errors.New("unknown analysis kind")

var kinds = []Kind{KindYouTube, KindPDF, KindResume, KindImageGen, KindPDFRefine}

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind accepts the wire name of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// NeedsFile reports whether the kind analyses an uploaded document rather
// than a URL or a text prompt.
func (k Kind) NeedsFile() bool {
	switch k {
	case KindPDF, KindResume, KindPDFRefine:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }
