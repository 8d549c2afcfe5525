package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

func renderItem(w io.Writer, it models.HistoryItem) {
	r := it.Result

	fmt.Fprintf(w, "== %s ==\n", it.Title)
	fmt.Fprintf(w, "id: %s  kind: %s  at: %s\n", it.ID, it.Kind, it.CreatedAt().Format("2006-01-02 15:04:05"))
	if it.Thumbnail != "" {
		fmt.Fprintf(w, "thumbnail: %s\n", shortRef(it.Thumbnail))
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n%s\n", r.Description)
	}

	fmt.Fprintf(w, "\n%s\n\n", r.Summary)

	s := r.Scores
	fmt.Fprintf(w, "scores  clarity %.0f  engagement %.0f  originality %.0f  structure %.0f  overall %.0f\n",
		s.Clarity, s.Engagement, s.Originality, s.Structure, s.Overall)

	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "tags: %s\n", strings.Join(r.Tags, ", "))
	}

	if len(r.Improvements) > 0 {
		fmt.Fprintln(w, "\nimprovements:")
		for _, imp := range r.Improvements {
			fmt.Fprintf(w, "  - %s\n", imp)
		}
	}

	if len(r.Tips) > 0 {
		fmt.Fprintln(w, "\ntips:")
		keys := make([]string, 0, len(r.Tips))
		for k := range r.Tips {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, r.Tips[k])
		}
	}

	if len(r.Sources) > 0 {
		fmt.Fprintln(w, "\nsources:")
		for _, src := range r.Sources {
			fmt.Fprintf(w, "  %s <%s>\n", src.Title, src.URI)
		}
	}
}

// shortRef keeps inline data URLs from flooding the terminal.
func shortRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		head, _, _ := strings.Cut(ref, ",")
		return fmt.Sprintf("%s,... (%d bytes)", head, len(ref))
	}
	return ref
}
