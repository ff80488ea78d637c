package tui

// Color constants for the practice timer theme.
const (
	ColorBorder        = "#3A3F55"
	ColorPrimaryText   = "#E6EAF2"
	ColorSecondaryText = "#B1B8C7"
	ColorHelpText      = "240"

	ColorAccentMain   = "#0EA5E9"
	ColorAccentBright = "#7DD3FC"

	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
	ColorWarning = "#F59E0B"
)
