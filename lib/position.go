package bingwallpaperlib

import (
	"fmt"
	"strings"
)

// Position is how the wallpaper is fitted to the screen. The values match
// DESKTOP_WALLPAPER_POSITION.
type Position int

const (
	PositionCenter Position = iota
	PositionTile
	PositionStretch
	PositionFit
	PositionFill
	PositionSpan
)

var positionNames = []string{"center", "tile", "stretch", "fit", "fill", "span"}

func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range positionNames {
		if n == s {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf(
		"Invalid Position [%s], must be one of %s", s, strings.Join(positionNames, ", "))
}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// gnomeOption is the org.gnome.desktop.background picture-options value.
func (p Position) gnomeOption() string {
	switch p {
	case PositionCenter:
		return "centered"
	case PositionTile:
		return "wallpaper"
	case PositionFit:
		return "scaled"
	case PositionFill:
		return "zoom"
	case PositionSpan:
		return "spanned"
	default:
		return "stretched"
	}
}

func (p Position) fehArgs() []string {
	switch p {
	case PositionCenter:
		return []string{"--bg-center"}
	case PositionTile:
		return []string{"--bg-tile"}
	case PositionFit:
		return []string{"--bg-max"}
	case PositionFill:
		return []string{"--bg-fill"}
	case PositionSpan:
		return []string{"--no-xinerama", "--bg-fill"}
	default:
		return []string{"--bg-scale"}
	}
}
