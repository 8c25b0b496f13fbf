package scripts

import (
	"strings"

	"github.com/fatih/color"
)

var colorAttributes = map[string]color.Attribute{
	"black":     color.FgBlack,
	"red":       color.FgRed,
	"green":     color.FgGreen,
	"yellow":    color.FgYellow,
	"blue":      color.FgBlue,
	"magenta":   color.FgMagenta,
	"cyan":      color.FgCyan,
	"white":     color.FgWhite,
	"gray":      color.FgHiBlack,
	"grey":      color.FgHiBlack,
	"bgblack":   color.BgBlack,
	"bgred":     color.BgRed,
	"bggreen":   color.BgGreen,
	"bgyellow":  color.BgYellow,
	"bgblue":    color.BgBlue,
	"bgmagenta": color.BgMagenta,
	"bgcyan":    color.BgCyan,
	"bgwhite":   color.BgWhite,
	"bold":      color.Bold,
	"dim":       color.Faint,
	"italic":    color.Italic,
	"underline": color.Underline,
}

// prefixColor parses a dotted color name such as "blue.bold" or "bgRed".
// Unknown parts are ignored.
func prefixColor(value string) *color.Color {
	var attrs []color.Attribute
	for _, part := range strings.Split(value, ".") {
		if attr, ok := colorAttributes[strings.ToLower(strings.TrimSpace(part))]; ok {
			attrs = append(attrs, attr)
		}
	}
	return color.New(attrs...)
}
