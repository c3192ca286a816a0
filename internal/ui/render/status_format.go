package render

import (
	"fmt"
	"math"
	"strings"

	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

func formatStatusRight(st statepkg.Status) string {
	var parts []string
	if m := formatMatchStatus(st); m != "" {
		parts = append(parts, m)
	}
	parts = append(parts, formatPageStatus(st), formatZoom(st.Zoom))
	return strings.Join(parts, " · ")
}

func formatPageStatus(st statepkg.Status) string {
	if st.Pages == 0 {
		return "-/0"
	}
	return fmt.Sprintf("%d/%d", st.Page+1, st.Pages)
}

func formatZoom(zoom float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(zoom*100)))
}

func formatMatchStatus(st statepkg.Status) string {
	if st.Query == "" {
		return ""
	}
	total := formatCompactNumber(st.MatchTotal)
	switch {
	case st.Searching:
		return fmt.Sprintf("%d/%s…", st.MatchPos, total)
	case st.MatchTotal == 0:
		return "no matches"
	default:
		return fmt.Sprintf("%d/%s", st.MatchPos, total)
	}
}

func formatCompactNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000.0)
	case n >= 10_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000.0)
	default:
		return fmt.Sprintf("%d", n)
	}
}
