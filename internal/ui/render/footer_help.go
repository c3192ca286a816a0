package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

// buildFooterHelpText returns the contextual hints shown when there is no
// status message.
func buildFooterHelpText(state *statepkg.AppState) string {
	return strings.Join(buildFooterHelpSegments(state), "  ")
}

func buildFooterHelpSegments(state *statepkg.AppState) []string {
	if state == nil {
		return nil
	}
	switch {
	case state.Selection.Active():
		segments := []string{"y: yank", "Esc: clear"}
		if state.Highlights != nil {
			segments = append(segments, "h: save highlight")
		}
		return segments
	case state.Search.Query() != "":
		return []string{"n/N: next/prev", "Esc: clear search"}
	default:
		return []string{"/: search", "?: help", "q: quit"}
	}
}
