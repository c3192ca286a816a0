package render

import "github.com/gdamore/tcell/v2"

// ColorTheme defines application colors.
type ColorTheme struct {
	Background  tcell.Color
	Foreground  tcell.Color
	PageBg      tcell.Color
	PageFg      tcell.Color
	ErrorFg     tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	MatchBg     tcell.Color
	MatchFg     tcell.Color
	FocusBg     tcell.Color
	FocusFg     tcell.Color
	HighlightBg tcell.Color
	HighlightFg tcell.Color
	FooterBg    tcell.Color
	FooterFg    tcell.Color
	PromptFg    tcell.Color
}

// GetColorTheme returns the default color scheme.
func GetColorTheme() ColorTheme {
	return ColorTheme{
		Background:  tcell.ColorDefault,
		Foreground:  tcell.ColorDefault,
		PageBg:      tcell.Color235, // dark grey sheet on the default background
		PageFg:      tcell.Color252,
		ErrorFg:     tcell.ColorRed,
		SelectionBg: tcell.Color33,
		SelectionFg: tcell.ColorWhite,
		MatchBg:     tcell.Color58,
		MatchFg:     tcell.Color229,
		FocusBg:     tcell.Color214,
		FocusFg:     tcell.ColorBlack,
		HighlightBg: tcell.Color22,
		HighlightFg: tcell.Color194,
		FooterBg:    tcell.ColorDefault,
		FooterFg:    tcell.ColorDefault,
		PromptFg:    tcell.Color44,
	}
}
