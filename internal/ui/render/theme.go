package render

import "github.com/gdamore/tcell/v2"

// ColorTheme defines application colors.
type ColorTheme struct {
	Background    tcell.Color
	Foreground    tcell.Color
	HeaderBg      tcell.Color
	HeaderFg      tcell.Color
	SelectionBg   tcell.Color
	SelectionFg   tcell.Color
	DirectoryFg   tcell.Color
	FileFg        tcell.Color
	GuideFg       tcell.Color
	PlaceholderFg tcell.Color
	CheckedFg     tcell.Color
	ActiveFg      tcell.Color
	LockedFg      tcell.Color
	ErrorFg       tcell.Color
	NoticeFg      tcell.Color
	FlashFg       tcell.Color
	FooterBg      tcell.Color
	FooterFg      tcell.Color
}

// GetColorTheme returns the default color scheme.
func GetColorTheme() ColorTheme {
	return ColorTheme{
		Background:    tcell.ColorDefault,
		Foreground:    tcell.ColorDefault,
		HeaderBg:      tcell.ColorDefault,
		HeaderFg:      tcell.ColorDefault,
		SelectionBg:   tcell.Color33,
		SelectionFg:   tcell.ColorWhite,
		DirectoryFg:   tcell.Color33,
		FileFg:        tcell.ColorDefault,
		GuideFg:       tcell.Color240,
		PlaceholderFg: tcell.ColorLightSlateGray,
		CheckedFg:     tcell.Color40,
		ActiveFg:      tcell.Color214,
		LockedFg:      tcell.Color244,
		ErrorFg:       tcell.Color196,
		NoticeFg:      tcell.Color44,
		FlashFg:       tcell.Color40,
		FooterBg:      tcell.ColorDefault,
		FooterFg:      tcell.ColorDefault,
	}
}
