package domain

// FontSize is the transcript text size.
type FontSize string

const (
	FontSizeNormal FontSize = "normal"
	FontSizeLarge  FontSize = "large"
)

// ScrollDirection controls whether new phrases appear at the bottom or the top.
type ScrollDirection string

const (
	ScrollDown ScrollDirection = "down"
	ScrollUp   ScrollDirection = "up"
)

// Preferences are display settings that outlive any session.
type Preferences struct {
	FontSize        FontSize        `json:"fontSize"`
	FontBold        bool            `json:"fontBold"`
	DarkMode        bool            `json:"darkMode"`
	ScrollDirection ScrollDirection `json:"scrollDirection"`
}

// DefaultPreferences is what a first-time viewer sees.
func DefaultPreferences() Preferences {
	return Preferences{
		FontSize:        FontSizeNormal,
		ScrollDirection: ScrollDown,
	}
}

// Theme returns the theme record value.
func (p Preferences) Theme() string {
	if p.DarkMode {
		return "dark"
	}
	return "light"
}
