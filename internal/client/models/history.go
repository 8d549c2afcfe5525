package models

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// HistoryItem is one archived analysis. ID is generated on creation and is
// the join key between the local cache and the remote archive. Items are
// never edited in place.
type HistoryItem struct {
	ID              string         `json:"id"`
	Kind            Kind           `json:"type"`
	CreatedAtMillis int64          `json:"timestamp"`
	Title           string         `json:"title"`
	Thumbnail       string         `json:"thumbnail,omitempty"`
	Result          AnalysisResult `json:"result"`
}

// NewHistoryItem stamps a fresh id and creation time.
func NewHistoryItem(kind Kind, title, thumbnail string, result AnalysisResult, now time.Time) HistoryItem {
	return HistoryItem{
		ID:              uuid.NewString(),
		Kind:            kind,
		CreatedAtMillis: now.UnixMilli(),
		Title:           title,
		Thumbnail:       thumbnail,
		Result:          result,
	}
}

func (h HistoryItem) CreatedAt() time.Time {
	return time.UnixMilli(h.CreatedAtMillis)
}

// SortNewestFirst orders items by creation time, newest first. Items with
// equal timestamps keep their relative order.
func SortNewestFirst(items []HistoryItem) {
	slices.SortStableFunc(items, func(a, b HistoryItem) int {
		return cmp.Compare(b.CreatedAtMillis, a.CreatedAtMillis)
	})
}

// Normalize returns a new collection that is sorted newest first, holds at
// most one item per id (the first occurrence wins) and is cut to limit.
// A limit <= 0 means unbounded. Items whose id is listed in keep survive the
// cut; the oldest of the remaining items are evicted in their place.
func Normalize(items []HistoryItem, limit int, keep ...string) []HistoryItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]HistoryItem, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}

	SortNewestFirst(out)

	if limit <= 0 || len(out) <= limit {
		return out
	}
	if len(keep) == 0 {
		return out[:limit]
	}

	pinned := 0
	for _, it := range out {
		if slices.Contains(keep, it.ID) {
			pinned++
		}
	}
	room := max(limit-pinned, 0)

	cut := make([]HistoryItem, 0, limit)
	for _, it := range out {
		switch {
		case slices.Contains(keep, it.ID):
			cut = append(cut, it)
		case room > 0:
			cut = append(cut, it)
			room--
		}
	}
	if len(cut) > limit {
		cut = cut[:limit]
	}
	return cut
}
